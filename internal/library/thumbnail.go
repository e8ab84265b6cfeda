package library

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	defaultThumbWidth   = 200
	defaultThumbHeight  = 300
	defaultJPEGQuality  = 85
	defaultMaxPixels    = 100 * 1000 * 1000 // 100 megapixels
	maxPassthroughBytes = 256 * 1024
)

// Thumbnailer scales cover images down for the library view.
type Thumbnailer struct {
	Width       int
	Height      int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// Thumbnail holds an encoded cover thumbnail.
// Warning is set when the image could not be scaled and Data is the
// original image (passthrough) or empty.
type Thumbnail struct {
	Data      []byte
	MediaType string
	Width     int
	Height    int
	Warning   string
}

// NewThumbnailer creates a thumbnailer with defaults.
func NewThumbnailer() *Thumbnailer {
	return &Thumbnailer{
		Width:       defaultThumbWidth,
		Height:      defaultThumbHeight,
		JPEGQuality: defaultJPEGQuality,
		MaxPixels:   defaultMaxPixels,
	}
}

// Make fits the image inside the thumbnail box and encodes it as JPEG, or
// PNG when the source has transparency. Images that cannot be decoded
// (SVG, oversized) are passed through when small enough.
func (t *Thumbnailer) Make(mediaType string, input []byte) (Thumbnail, error) {
	passthrough := func(warning string) Thumbnail {
		out := Thumbnail{MediaType: mediaType, Warning: warning}
		if len(input) <= maxPassthroughBytes {
			out.Data = input
		}
		return out
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return passthrough(fmt.Sprintf("image decode failed: %v", err)), nil
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if t.MaxPixels > 0 && pixels > uint64(t.MaxPixels) {
		return passthrough(fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)), nil
	}

	src, err := imaging.Decode(bytes.NewReader(input), imaging.AutoOrientation(true))
	if err != nil {
		return passthrough(fmt.Sprintf("image decode failed: %v", err)), nil
	}

	processed := src
	if src.Bounds().Dx() > t.Width || src.Bounds().Dy() > t.Height {
		processed = imaging.Fit(src, t.Width, t.Height, imaging.Lanczos)
	}

	var (
		buf    bytes.Buffer
		format = imaging.JPEG
		mt     = "image/jpeg"
	)
	if hasAlpha(processed) {
		format, mt = imaging.PNG, "image/png"
	}
	if err := imaging.Encode(&buf, processed, format, imaging.JPEGQuality(t.JPEGQuality)); err != nil {
		return Thumbnail{}, fmt.Errorf("thumbnail encode failed: %w", err)
	}

	return Thumbnail{
		Data:      buf.Bytes(),
		MediaType: mt,
		Width:     processed.Bounds().Dx(),
		Height:    processed.Bounds().Dy(),
	}, nil
}

// DataURL returns the thumbnail as a data URL, or "" when it has no data.
func (th Thumbnail) DataURL() string {
	if len(th.Data) == 0 {
		return ""
	}
	return "data:" + strings.ToLower(th.MediaType) + ";base64," + base64.StdEncoding.EncodeToString(th.Data)
}

func hasAlpha(img image.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}

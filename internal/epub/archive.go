package epub

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Archive is an opened EPUB container. It is read-only after OpenArchive
// returns and safe for concurrent reads.
type Archive struct {
	zr    *zip.Reader
	files map[string]*zip.File
}

// Entry is a single file inside an Archive.
type Entry struct {
	file *zip.File
}

// OpenArchive opens a zip container held in memory.
func OpenArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	a := &Archive{
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}

	// Build file map with normalized paths; first entry wins on duplicates
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		if _, exists := a.files[name]; !exists {
			a.files[name] = f
		}
	}

	return a, nil
}

// Entry looks up a file by its path inside the archive.
func (a *Archive) Entry(path string) (*Entry, bool) {
	f, ok := a.files[normalizePath(path)]
	if !ok || f.FileInfo().IsDir() {
		return nil, false
	}
	return &Entry{file: f}, true
}

// ReadFile reads the contents of a file from the archive.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, ok := a.Entry(path)
	if !ok {
		return nil, &NotFoundError{Path: path}
	}
	return e.Bytes()
}

// Names returns the sorted paths of every file in the archive.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.files))
	for name, f := range a.files {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the entry path.
func (e *Entry) Name() string {
	return normalizePath(e.file.Name)
}

// Size returns the uncompressed size of the entry.
func (e *Entry) Size() int64 {
	return int64(e.file.UncompressedSize64)
}

// Bytes returns the raw entry contents.
func (e *Entry) Bytes() ([]byte, error) {
	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", e.file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", e.file.Name, err)
	}
	return data, nil
}

// Text returns the entry contents as a string with any UTF-8 byte order
// mark removed.
func (e *Entry) Text() (string, error) {
	data, err := e.Bytes()
	if err != nil {
		return "", err
	}
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

// Base64 returns the entry contents in standard base64 encoding.
func (e *Entry) Base64() (string, error) {
	data, err := e.Bytes()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "./")
	return path
}

package epub

import "strings"

// resolvePath resolves a reference relative to a base directory inside the
// archive. "." segments are ignored, ".." drops the previous segment and a
// leading "/" makes the reference archive-root relative.
// baseDir: base directory (e.g., "OEBPS/text/" for "OEBPS/text/ch1.xhtml")
// relPath: relative path (e.g., "../css/style.css")
// returns: resolved path (e.g., "OEBPS/css/style.css")
func resolvePath(baseDir, relPath string) string {
	if strings.HasPrefix(relPath, "/") {
		return relPath[1:]
	}

	segments := splitSegments(baseDir)
	for _, seg := range splitSegments(relPath) {
		switch seg {
		case ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}
	return strings.Join(segments, "/")
}

func splitSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dirOf returns the directory part of an archive path including the
// trailing slash.
func dirOf(p string) string {
	return p[:strings.LastIndex(p, "/")+1]
}

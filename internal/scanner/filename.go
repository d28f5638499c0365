package scanner

import (
	"fmt"
	"strings"
)

// Extensions produced by InferExtension.
const (
	ExtWebP = ".webp"
	ExtJPEG = ".jpg"
	ExtPNG  = ".png"
)

// InferExtension guesses a file extension from substrings of the URL. It is a
// naming heuristic only; the downloaded bytes are never inspected.
func InferExtension(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, ".webp"):
		return ExtWebP
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, ".jpeg"):
		return ExtJPEG
	default:
		return ExtPNG
	}
}

// ImageFilename builds "{store}_img{index}{ext}".
func ImageFilename(store Store, index int, rawURL string) string {
	return fmt.Sprintf("%s_img%d%s", store, index, InferExtension(rawURL))
}

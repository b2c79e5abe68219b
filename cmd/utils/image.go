package utils

import (
	"path/filepath"
	"strings"
)

const MaxImageSize = 10 << 20 // 10 MB

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// ValidImageExtension checks the filename against the image whitelist,
// case-insensitively. Runs before any blob upload so a bad file never
// leaves an orphaned object behind.
func ValidImageExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return allowedImageExtensions[ext]
}

func ImageContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

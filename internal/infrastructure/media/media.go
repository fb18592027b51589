package media

import (
	"path"
	"strings"

	"github.com/pot-code/lessonrelay/internal/domain"
)

// cleanKey normalizes a slash separated key, rejecting absolute keys and parent references
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", domain.ErrInvalidMediaKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", domain.ErrInvalidMediaKey
		}
	}
	cleaned := path.Clean(key)
	if cleaned == "." {
		return "", domain.ErrInvalidMediaKey
	}
	return cleaned, nil
}

// ContentType guess the content type from the key extension
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4", ".m4v":
		return "video/mp4"
	}
	return "application/octet-stream"
}

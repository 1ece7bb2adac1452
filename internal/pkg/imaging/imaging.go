package imaging

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// AllowedExtension reports whether the filename carries a supported
// image extension.
func AllowedExtension(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// MimeType returns the content type for a supported image filename.
func MimeType(filename string) (string, error) {
	mime, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("unsupported image extension %q", filepath.Ext(filename))
	}
	return mime, nil
}

// FileToDataURI reads an image from disk and encodes it as a base64
// data URI, the form the vision and embedding providers accept.
func FileToDataURI(path string) (string, error) {
	mime, err := MimeType(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return EncodeDataURI(mime, data), nil
}

// EncodeDataURI wraps raw bytes into a data URI.
func EncodeDataURI(mime string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}

// IsDataURI reports whether the image reference is inline rather than
// a URL or file path.
func IsDataURI(image string) bool {
	return strings.HasPrefix(image, "data:")
}

// DecodeDataURI splits a data URI into mime type and raw bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, fmt.Errorf("not a data uri")
	}
	rest := strings.TrimPrefix(uri, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, fmt.Errorf("data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data uri: %w", err)
	}
	return rest[:sep], data, nil
}

package gcsuploader

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const scheme = "gs://"

// ParseURI splits "gs://bucket/path/to/object" into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// BuildURI is the inverse of ParseURI.
func BuildURI(bucket, object string) string {
	return scheme + bucket + "/" + object
}

// FileName extracts the base name from a GCS URI.
// e.g., "gs://bucket/folder/file.txt" → "file.txt"
func FileName(uri string) string {
	trimmed := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// ObjectName returns a unique object path for an uploaded statement, grouped
// by upload month: statements/2025/04/<uuid>-<name>.
func ObjectName(fileName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "statement.txt"
	}
	return fmt.Sprintf("statements/%04d/%02d/%s-%s", now.Year(), int(now.Month()), uuid.NewString(), base)
}

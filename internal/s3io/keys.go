package s3io

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrFilename    = errors.New("invalid document filename")
	ErrContentType = errors.New("unsupported document content type")
)

// allowed upload types keyed by lower-case extension
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".txt":  "text/plain",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var unsafeRx = regexp.MustCompile(`[^a-zA-Z0-9._\-]+`)

// ValidateFilename checks the extension against the allowed document types and
// returns the content type the upload must use.
func ValidateFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 {
		return "", fmt.Errorf("%w: %q", ErrFilename, name)
	}
	ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrContentType, filepath.Ext(name))
	}
	return ct, nil
}

// SanitizeName reduces name to a safe object key segment.
func SanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.Trim(unsafeRx.ReplaceAllString(base, "_"), "_")
	if base == "" || base == "." {
		return "document"
	}
	return base
}

// BuildKey constructs the object key for one uploaded document.
func BuildKey(claimID, uploadID, filename string) string {
	return fmt.Sprintf("appeals/%s/%s/%s", claimID, uploadID, SanitizeName(filename))
}

// ParseKey extracts the claim id, upload id and filename from a document key.
func ParseKey(key string) (claimID, uploadID, filename string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "appeals" || parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}

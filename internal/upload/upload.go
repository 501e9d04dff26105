// Package upload validates files handed to the extraction intake.
package upload

import (
	"errors"
	"fmt"
	"mime"
)

// MaxFileSize is the upload size cap in bytes.
const MaxFileSize = 100 * 1024 * 1024 // 100 MB

// AllowedMIMETypes is the intake allow-list: PDF, both presentation formats,
// PNG and JPEG. Anything else is rejected at the door.
var AllowedMIMETypes = map[string]struct{}{
	"application/pdf":               {},
	"application/vnd.ms-powerpoint": {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"image/png":  {},
	"image/jpeg": {},
}

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = fmt.Errorf("file too large (max %d MB)", MaxFileSize/(1024*1024))
	ErrEmptyFile       = errors.New("empty file")
)

// Allowed reports whether the declared content type is in the allow-list.
// Parameters (e.g. "; charset=binary") are stripped before the lookup.
func Allowed(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := AllowedMIMETypes[mediaType]
	return ok
}

// Validate checks a candidate upload's declared content type and size.
func Validate(contentType string, size int64) error {
	if !Allowed(contentType) {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}

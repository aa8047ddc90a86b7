package service

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
)

// decoded image format per allowed extension
var formatFamily = map[string]string{
	"jpg":  "jpeg",
	"jpeg": "jpeg",
	"png":  "png",
	"gif":  "gif",
}

// FileName is a client filename split into its informational stem and validated extension
type FileName struct {
	Original string // stem, e.g. "cat"
	Ext      string // lower-case, no dot, e.g. "jpg"
}

// FileType returns the stored file_type value, e.g. ".jpg"
func (f FileName) FileType() string {
	return "." + f.Ext
}

// Validator performs the pure admission checks on an upload
type Validator struct {
	maxBytes  int64
	maxPixels int64
	allowed   map[string]struct{}
}

// NewValidator creates a validator. Extensions are matched case-insensitively, with or without a dot.
// maxPixels bounds width*height as declared in the image header, checked before any pixel is decoded.
func NewValidator(maxBytes, maxPixels int64, allowed []string) *Validator {
	v := &Validator{
		maxBytes:  maxBytes,
		maxPixels: maxPixels,
		allowed:   make(map[string]struct{}, len(allowed)),
	}
	for _, ext := range allowed {
		v.allowed[normalizeExt(ext)] = struct{}{}
	}
	return v
}

// MaxBytes returns the size ceiling
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// CheckSize rejects a declared length above the ceiling. A negative length means it was not declared.
func (v *Validator) CheckSize(contentLength int64) error {
	if contentLength < 0 {
		return fmt.Errorf("%w: Content-Length required", ErrBadRequest)
	}
	if contentLength > v.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, contentLength, v.maxBytes)
	}
	return nil
}

// CheckFilename parses the client filename and checks its extension against the allow-list
func (v *Validator) CheckFilename(filename string) (FileName, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return FileName{}, fmt.Errorf("%w: missing filename", ErrBadRequest)
	}

	// Only the last path element is kept; the name never reaches a filesystem path.
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || base == "." || base == "/" {
		return FileName{}, fmt.Errorf("%w: unparseable filename %q", ErrBadRequest, filename)
	}

	norm := normalizeExt(ext)
	if _, ok := v.allowed[norm]; !ok || norm == "" {
		return FileName{}, fmt.Errorf("%w: file type %q not allowed", ErrUnsupportedMediaType, ext)
	}

	return FileName{Original: stem, Ext: norm}, nil
}

// CheckContent decodes the whole payload and requires the format to match the extension
func (v *Validator) CheckContent(ext string, data []byte) error {
	if int64(len(data)) > v.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, len(data), v.maxBytes)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidImageContent)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImageContent, err)
	}
	if want, ok := formatFamily[ext]; ok && want != format {
		return fmt.Errorf("%w: %s data in a .%s file", ErrInvalidImageContent, format, ext)
	}

	// Decoders allocate the full pixel buffer before reading any pixel data.
	pixels := int64(cfg.Width) * int64(cfg.Height)
	if cfg.Width <= 0 || cfg.Height <= 0 || pixels > v.maxPixels {
		return fmt.Errorf("%w: %dx%d image exceeds limit of %d pixels", ErrInvalidImageContent, cfg.Width, cfg.Height, v.maxPixels)
	}

	if format == "gif" {
		// gif.Decode stops after the first frame; every frame must be intact.
		_, err = gif.DecodeAll(bytes.NewReader(data))
	} else {
		_, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImageContent, err)
	}
	return nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/yoink-app/yoink-be/internal/extractor"
)

// Renderer rasterizes multi-page documents into page images. The detection
// engine implements it for PDFs and slide decks.
type Renderer interface {
	Render(ctx context.Context, filename string, data []byte, dpi int) ([]extractor.PageImage, error)
}

// DefaultDPI is the rasterization resolution for multi-page documents.
const DefaultDPI = 150

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// IsImage reports whether a filename refers to a raster image we can decode
// locally instead of sending to the renderer.
func IsImage(filename string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ToPages turns an uploaded document into a list of page PNGs. Raster images
// are re-encoded locally as a single page; everything else goes through the
// renderer.
func ToPages(ctx context.Context, r Renderer, filename string, data []byte) ([]extractor.PageImage, error) {
	if !IsImage(filename) {
		return r.Render(ctx, filename, data, DefaultDPI)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filename, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return []extractor.PageImage{{PageNumber: 1, PNG: buf.Bytes()}}, nil
}

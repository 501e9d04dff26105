package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"

	"github.com/yoink-app/yoink-be/internal/extractor"
)

// Engine is the detection service surface the pipeline depends on.
type Engine interface {
	Renderer
	Detect(ctx context.Context, pagePNG []byte) ([]extractor.Detection, error)
}

// ProgressFunc is invoked after each page is processed.
type ProgressFunc func(current, total int)

// Pipeline runs the full extraction for one job: rasterize the document,
// detect regions on every page, categorize and crop them, and write the
// assembled result document.
type Pipeline struct {
	engine Engine
	logger *slog.Logger
}

func New(engine Engine, logger *slog.Logger) *Pipeline {
	return &Pipeline{engine: engine, logger: logger}
}

// Run processes the uploaded file at uploadPath and writes the result
// document into outputDir. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, filename, uploadPath, outputDir string, progress ProgressFunc) (Output, string, error) {
	data, err := os.ReadFile(uploadPath)
	if err != nil {
		return Output{}, "", fmt.Errorf("read upload: %w", err)
	}

	pages, err := ToPages(ctx, p.engine, filename, data)
	if err != nil {
		return Output{}, "", fmt.Errorf("convert %s: %w", filename, err)
	}
	total := len(pages)
	p.logger.Info("Document converted",
		slog.String("filename", filename),
		slog.Int("pages", total),
	)

	entries := make([]PageEntry, 0, total)
	nextID := 0
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return Output{}, "", err
		}

		detections, err := p.engine.Detect(ctx, page.PNG)
		if err != nil {
			return Output{}, "", fmt.Errorf("detect page %d: %w", page.PageNumber, err)
		}

		img, err := imaging.Decode(bytes.NewReader(page.PNG))
		if err != nil {
			return Output{}, "", fmt.Errorf("decode page %d: %w", page.PageNumber, err)
		}

		components := MapAndCrop(detections, img, nextID, p.logger)
		nextID += len(detections)

		entry, err := EncodePage(page.PageNumber, components)
		if err != nil {
			return Output{}, "", fmt.Errorf("encode page %d: %w", page.PageNumber, err)
		}
		entries = append(entries, entry)

		if progress != nil {
			progress(i+1, total)
		}
	}

	out := Assemble(filename, entries)
	path, err := WriteOutput(out, outputDir)
	if err != nil {
		return Output{}, "", err
	}
	p.logger.Info("Extraction finished",
		slog.String("filename", filename),
		slog.Int("pages", out.TotalPages),
		slog.Int("components", out.TotalComponents),
		slog.String("result", path),
	)
	return out, path, nil
}

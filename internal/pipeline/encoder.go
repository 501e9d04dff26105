package pipeline

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ComponentEntry is the serialized form of one extracted component.
type ComponentEntry struct {
	ID            int     `json:"id"`
	OriginalLabel string  `json:"original_label"`
	LabelIndex    int     `json:"label_index"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
	BBox          []int   `json:"bbox"`
	Base64        string  `json:"base64"`
}

// PageEntry groups the components found on one page.
type PageEntry struct {
	PageNumber int              `json:"page_number"`
	Components []ComponentEntry `json:"components"`
}

// Output is the assembled result document for one extraction job.
type Output struct {
	SourceFile      string      `json:"source_file"`
	TotalPages      int         `json:"total_pages"`
	TotalComponents int         `json:"total_components"`
	Pages           []PageEntry `json:"pages"`
}

// EncodePage serializes a page's components, embedding each crop as a
// base64-encoded PNG.
func EncodePage(pageNumber int, components []Component) (PageEntry, error) {
	entries := make([]ComponentEntry, 0, len(components))
	for _, c := range components {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, c.Crop, imaging.PNG); err != nil {
			return PageEntry{}, fmt.Errorf("encode component %d: %w", c.ID, err)
		}
		entries = append(entries, ComponentEntry{
			ID:            c.ID,
			OriginalLabel: c.OriginalLabel,
			LabelIndex:    c.LabelIndex,
			Category:      c.Category,
			Confidence:    roundConfidence(c.Confidence),
			BBox:          c.BBox,
			Base64:        base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}
	return PageEntry{PageNumber: pageNumber, Components: entries}, nil
}

// Assemble builds the final output document from per-page entries.
func Assemble(sourceFile string, pages []PageEntry) Output {
	total := 0
	for _, p := range pages {
		total += len(p.Components)
	}
	return Output{
		SourceFile:      sourceFile,
		TotalPages:      len(pages),
		TotalComponents: total,
		Pages:           pages,
	}
}

// WriteOutput writes the result document next to the job's working files as
// {stem}_extracted.json and returns the path.
func WriteOutput(out Output, dir string) (string, error) {
	stem := strings.TrimSuffix(out.SourceFile, filepath.Ext(out.SourceFile))
	path := filepath.Join(dir, stem+"_extracted.json")

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

// ReadOutput loads a previously written result document.
func ReadOutput(path string) (Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Output{}, fmt.Errorf("read output: %w", err)
	}
	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return Output{}, fmt.Errorf("unmarshal output: %w", err)
	}
	return out, nil
}

func roundConfidence(c float64) float64 {
	return math.Round(c*10000) / 10000
}

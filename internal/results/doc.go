package results

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is the client-facing result for one finished job. Component crops
// are referenced by URL; the raw base64 payloads never leave the worker.
type Document struct {
	JobID           string      `json:"job_id"`
	SourceFile      string      `json:"source_file"`
	TotalPages      int         `json:"total_pages"`
	TotalComponents int         `json:"total_components"`
	Components      []Component `json:"components"`
}

// WriteDocument stores a result document at path.
func WriteDocument(doc Document, path string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal result document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result document: %w", err)
	}
	return nil
}

// ReadDocument loads a result document from path.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read result document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshal result document: %w", err)
	}
	return doc, nil
}

// Package extractor is the HTTP client for the layout-detection engine. The
// engine is a black box: it renders documents into page images and labels the
// regions on a page; everything downstream of those detections happens here.
package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Detection is one labeled region on a page, in the engine's raw vocabulary.
type Detection struct {
	Label      string  `json:"label"`
	LabelIndex int     `json:"label_index"`
	Confidence float64 `json:"confidence"`
	BBox       []int   `json:"bbox"`
}

// PageImage is one rendered page of a document.
type PageImage struct {
	PageNumber int    `json:"page_number"`
	PNG        []byte `json:"-"`
}

// Config holds engine connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the extraction engine.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates an engine client. A zero timeout defaults to 60s.
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type renderRequest struct {
	Filename string `json:"filename"`
	Data     string `json:"data"` // base64 document bytes
	DPI      int    `json:"dpi,omitempty"`
}

type renderResponse struct {
	Pages []struct {
		PageNumber int    `json:"page_number"`
		PNG        string `json:"png"` // base64
	} `json:"pages"`
}

// Render asks the engine to rasterize a document (PDF or slide deck) into
// one PNG per page.
func (c *Client) Render(ctx context.Context, filename string, data []byte, dpi int) ([]PageImage, error) {
	var resp renderResponse
	err := c.postJSON(ctx, "/v1/render", renderRequest{
		Filename: filename,
		Data:     base64.StdEncoding.EncodeToString(data),
		DPI:      dpi,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", filename, err)
	}

	pages := make([]PageImage, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		png, err := base64.StdEncoding.DecodeString(p.PNG)
		if err != nil {
			return nil, fmt.Errorf("render %s: decode page %d: %w", filename, p.PageNumber, err)
		}
		pages = append(pages, PageImage{PageNumber: p.PageNumber, PNG: png})
	}

	c.logger.Info("Document rendered",
		slog.String("filename", filename),
		slog.Int("pages", len(pages)),
	)
	return pages, nil
}

type detectRequest struct {
	Image string `json:"image"` // base64 PNG
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Detect runs layout detection on a single page image.
func (c *Client) Detect(ctx context.Context, pagePNG []byte) ([]Detection, error) {
	var resp detectResponse
	err := c.postJSON(ctx, "/v1/detect", detectRequest{
		Image: base64.StdEncoding.EncodeToString(pagePNG),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	return resp.Detections, nil
}

// Healthy reports whether the engine answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("Engine request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("engine returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Bucket is where per-user component images live.
const Bucket = "scans"

const (
	uploadConcurrency = 8
	uploadRetries     = 3
	retryBaseDelay    = 500 * time.Millisecond
)

// Object is one file to upload.
type Object struct {
	Path        string
	ContentType string
	Data        []byte
}

// Config holds the object storage connection settings.
type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// Client talks to the storage HTTP API.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PublicURL returns the unauthenticated URL for an object in a public bucket.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, path)
}

// Upload writes one object, overwriting any existing file at the path.
func (c *Client) Upload(ctx context.Context, bucket string, obj Object) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, obj.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(obj.Data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", obj.ContentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", obj.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s: status %d: %s", obj.Path, resp.StatusCode, string(body))
	}
	return nil
}

// UploadAll uploads objects concurrently, retrying each a few times with a
// doubling delay. It returns the first error encountered after all workers
// finish.
func (c *Client) UploadAll(ctx context.Context, bucket string, objects []Object) error {
	sem := make(chan struct{}, uploadConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, obj := range objects {
		wg.Add(1)
		sem <- struct{}{}
		go func(obj Object) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := c.uploadWithRetry(ctx, bucket, obj); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(obj)
	}
	wg.Wait()
	return firstErr
}

func (c *Client) uploadWithRetry(ctx context.Context, bucket string, obj Object) error {
	delay := retryBaseDelay
	var err error
	for attempt := 1; attempt <= uploadRetries; attempt++ {
		if err = c.Upload(ctx, bucket, obj); err == nil {
			return nil
		}
		c.logger.Warn("Upload attempt failed",
			slog.String("path", obj.Path),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if attempt < uploadRetries {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return err
}

// List returns object names under a prefix.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, bucket)
	payload, err := json.Marshal(map[string]any{"prefix": prefix, "limit": 1000})
	if err != nil {
		return nil, fmt.Errorf("marshal list request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list %s: status %d: %s", prefix, resp.StatusCode, string(body))
	}

	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// Remove deletes objects by full path.
func (c *Client) Remove(ctx context.Context, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	url := fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, bucket)
	payload, err := json.Marshal(map[string]any{"prefixes": paths})
	if err != nil {
		return fmt.Errorf("marshal remove request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build remove request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remove objects: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remove objects: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

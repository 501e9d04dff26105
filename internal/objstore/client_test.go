package objstore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, ServiceKey: "service-key"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return client, srv
}

func TestClient_Upload(t *testing.T) {
	var gotPath, gotAuth, gotUpsert string
	var gotBody []byte
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	err := client.Upload(context.Background(), Bucket, Object{
		Path:        "user-1/job-1/0.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/scans/user-1/job-1/0.png", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, []byte("png-bytes"), gotBody)
}

func TestClient_UploadAll_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := client.UploadAll(context.Background(), Bucket, []Object{
		{Path: "u/j/0.png", ContentType: "image/png", Data: []byte("a")},
		{Path: "u/j/1.png", ContentType: "image/png", Data: []byte("b")},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int64(3))
}

func TestClient_UploadAll_ReturnsErrorWhenRetriesExhausted(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))

	err := client.UploadAll(context.Background(), Bucket, []Object{
		{Path: "u/j/0.png", ContentType: "image/png", Data: []byte("a")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_PublicURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://store.example.com/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	url := client.PublicURL(Bucket, "user-1/job-1/0.png")
	assert.Equal(t, "https://store.example.com/storage/v1/object/public/scans/user-1/job-1/0.png", url)
}

func TestClient_ListAndRemove(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/list/scans":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"name":"0.png"},{"name":"1.png"}]`))
		case r.Method == http.MethodDelete && r.URL.Path == "/storage/v1/object/scans":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	names, err := client.List(context.Background(), Bucket, "user-1/job-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.png", "1.png"}, names)

	err = client.Remove(context.Background(), Bucket, []string{"user-1/job-1/0.png"})
	require.NoError(t, err)
}

func TestGuestStore(t *testing.T) {
	root := t.TempDir()
	store := NewGuestStore(root, "")

	url, err := store.Write("abc123", 0, []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/static/guest/abc123/0.png", url)

	data, err := os.ReadFile(filepath.Join(root, "guest", "abc123", "0.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	require.NoError(t, store.Cleanup("abc123"))
	assert.NoDirExists(t, filepath.Join(root, "guest", "abc123"))
}

func TestGuestStore_PublicBaseURL(t *testing.T) {
	store := NewGuestStore(t.TempDir(), "https://api.yoink.app/")

	url, err := store.Write("abc123", 4, []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.yoink.app/static/guest/abc123/4.png", url)
}

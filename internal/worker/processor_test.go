package worker

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoink-app/yoink-be/internal/extractor"
	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/objstore"
	"github.com/yoink-app/yoink-be/internal/pipeline"
	"github.com/yoink-app/yoink-be/internal/results"
	"github.com/yoink-app/yoink-be/internal/worker/domain"
)

type stubEngine struct {
	detections []extractor.Detection
	detectErr  error
}

func (s *stubEngine) Render(ctx context.Context, filename string, data []byte, dpi int) ([]extractor.PageImage, error) {
	return nil, fmt.Errorf("render not expected for images")
}

func (s *stubEngine) Detect(ctx context.Context, pagePNG []byte) ([]extractor.Detection, error) {
	if s.detectErr != nil {
		return nil, s.detectErr
	}
	return s.detections, nil
}

func testWorker(t *testing.T, engine pipeline.Engine) (*Worker, jobstore.Store, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := jobstore.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	staticRoot := t.TempDir()
	w := NewWorker(&Config{
		Logger:     logger,
		Jobs:       store,
		Pipeline:   pipeline.New(engine, logger),
		Guest:      objstore.NewGuestStore(staticRoot, ""),
		WorkerID:   "worker-test",
		JobTimeout: 10 * time.Second,
	})
	return w, store, staticRoot
}

func queueGuestJob(t *testing.T, store jobstore.Store) (string, string) {
	t.Helper()
	dir := t.TempDir()
	uploadPath := filepath.Join(dir, "scan.png")

	var buf bytes.Buffer
	img := imaging.New(100, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	require.NoError(t, os.WriteFile(uploadPath, buf.Bytes(), 0o644))

	id, err := store.Create(context.Background(), "scan.png", uploadPath, "")
	require.NoError(t, err)
	return id, dir
}

func TestProcessJob_GuestCompletes(t *testing.T) {
	engine := &stubEngine{detections: []extractor.Detection{
		{Label: "title", LabelIndex: 0, Confidence: 0.95, BBox: []int{0, 0, 50, 20}},
		{Label: "figure", LabelIndex: 3, Confidence: 0.9, BBox: []int{10, 30, 90, 90}},
	}}
	w, store, staticRoot := testWorker(t, engine)
	id, dir := queueGuestJob(t, store)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: id})
	require.NoError(t, err)

	job, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.TotalPages)
	assert.Equal(t, 2, job.TotalComponents)
	assert.Equal(t, filepath.Join(dir, "scan_result.json"), job.ResultPath)

	doc, err := results.ReadDocument(job.ResultPath)
	require.NoError(t, err)
	require.Len(t, doc.Components, 2)
	assert.Equal(t, fmt.Sprintf("/static/guest/%s/0.png", id), doc.Components[0].URL)
	assert.FileExists(t, filepath.Join(staticRoot, "guest", id, "0.png"))
	assert.FileExists(t, filepath.Join(staticRoot, "guest", id, "1.png"))
}

func TestProcessJob_EngineFailureMarksJobFailed(t *testing.T) {
	engine := &stubEngine{detectErr: fmt.Errorf("model not loaded")}
	w, store, _ := testWorker(t, engine)
	id, _ := queueGuestJob(t, store)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: id})
	require.Error(t, err)
	assert.False(t, w.shouldRequeueJob(err))

	job, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "model not loaded")
}

func TestProcessJob_AlreadyClaimedNotRequeued(t *testing.T) {
	engine := &stubEngine{}
	w, store, _ := testWorker(t, engine)
	id, _ := queueGuestJob(t, store)

	_, err := store.Claim(context.Background(), id)
	require.NoError(t, err)

	err = w.processJob(context.Background(), &domain.JobMessage{JobID: id})
	require.ErrorIs(t, err, jobstore.ErrJobAlreadyClaimed)
	assert.False(t, w.shouldRequeueJob(err))
}

func TestProcessJob_MissingJobNotRequeued(t *testing.T) {
	engine := &stubEngine{}
	w, _, _ := testWorker(t, engine)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: "00000000000000000000000000000000"})
	require.ErrorIs(t, err, domain.ErrJobGone)
	assert.False(t, w.shouldRequeueJob(err))
}

func TestShouldRequeueJob_RetryableErrors(t *testing.T) {
	w := &Worker{}
	assert.True(t, w.shouldRequeueJob(domain.NewRetryableError(fmt.Errorf("db locked"))))
	assert.False(t, w.shouldRequeueJob(fmt.Errorf("some other failure")))
}

package cleanup

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/objstore"
)

func backdate(t *testing.T, dbPath, jobID string, age time.Duration) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("UPDATE jobs SET created_at = ? WHERE id = ?",
		time.Now().UTC().Add(-age), jobID)
	require.NoError(t, err)
}

func TestSweep(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "jobs.db")
	store, err := jobstore.NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	defer store.Close()

	staticRoot := t.TempDir()
	guest := objstore.NewGuestStore(staticRoot, "")

	oldDir := t.TempDir()
	oldUpload := filepath.Join(oldDir, "old.pdf")
	require.NoError(t, os.WriteFile(oldUpload, []byte("x"), 0o644))
	oldID, err := store.Create(context.Background(), "old.pdf", oldUpload, "")
	require.NoError(t, err)
	backdate(t, dbPath, oldID, 13*time.Hour)
	_, err = guest.Write(oldID, 0, []byte("png"))
	require.NoError(t, err)

	freshID, err := store.Create(context.Background(), "fresh.pdf", filepath.Join(t.TempDir(), "fresh.pdf"), "")
	require.NoError(t, err)

	sweeper := NewSweeper(store, guest, 12*time.Hour, time.Hour, logger)
	sweeper.Sweep(context.Background())

	_, err = store.Get(context.Background(), oldID)
	assert.ErrorIs(t, err, jobstore.ErrJobNotFound)
	assert.NoDirExists(t, oldDir)
	assert.NoDirExists(t, filepath.Join(staticRoot, "guest", oldID))

	fresh, err := store.Get(context.Background(), freshID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusQueued, fresh.Status)
}

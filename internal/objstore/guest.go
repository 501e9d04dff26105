package objstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GuestStore writes guest component images under the service's static root so
// they can be served without authentication. baseURL, when set, is the public
// origin prefixed onto returned URLs so results stay addressable off-origin.
type GuestStore struct {
	root    string
	baseURL string
}

func NewGuestStore(staticRoot, baseURL string) *GuestStore {
	return &GuestStore{root: staticRoot, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir returns the directory holding a guest job's images.
func (g *GuestStore) Dir(jobID string) string {
	return filepath.Join(g.root, "guest", jobID)
}

// Write stores one component image for a guest job and returns the URL
// clients use to fetch it.
func (g *GuestStore) Write(jobID string, componentID int, png []byte) (string, error) {
	dir := g.Dir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create guest dir: %w", err)
	}
	name := fmt.Sprintf("%d.png", componentID)
	if err := os.WriteFile(filepath.Join(dir, name), png, 0o644); err != nil {
		return "", fmt.Errorf("write guest image: %w", err)
	}
	return fmt.Sprintf("%s/static/guest/%s/%s", g.baseURL, jobID, name), nil
}

// Cleanup removes all images for a guest job.
func (g *GuestStore) Cleanup(jobID string) error {
	return os.RemoveAll(g.Dir(jobID))
}

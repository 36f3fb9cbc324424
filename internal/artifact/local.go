package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forkadarshp/metrix/internal/domain"
	"github.com/forkadarshp/metrix/internal/pathutil"
)

const defaultFilePermissions = 0o640

// LocalStore is the default Store backend: audio under
// "<root>/audio/", transcripts under "<root>/transcripts/".
type LocalStore struct {
	root string
}

// NewLocalStore builds a LocalStore rooted at root, creating the audio and
// transcripts subdirectories if they don't already exist.
func NewLocalStore(root string) (*LocalStore, error) {
	for _, sub := range []string{"audio", "transcripts"} {
		if err := pathutil.EnsureDir(filepath.Join(root, sub)); err != nil {
			return nil, fmt.Errorf("artifact: prepare local store: %w", err)
		}
	}

	return &LocalStore{root: root}, nil
}

func (s *LocalStore) subdirFor(kind domain.ArtifactKind) string {
	if kind == domain.ArtifactTranscript {
		return "transcripts"
	}

	return "audio"
}

// Put implements Store.
func (s *LocalStore) Put(_ context.Context, kind domain.ArtifactKind, itemID, ext string, data []byte) (string, error) {
	filename := filenameFor(kind, itemID, ext)
	locator := filepath.Join(s.subdirFor(kind), filename)
	fullPath := filepath.Join(s.root, locator)

	if err := os.WriteFile(fullPath, data, defaultFilePermissions); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", fullPath, err)
	}

	return locator, nil
}

// Get implements Store.
func (s *LocalStore) Get(_ context.Context, locator string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, locator))
	if err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", locator, err)
	}

	return data, nil
}

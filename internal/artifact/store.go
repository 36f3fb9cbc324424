// Package artifact stores and retrieves the binary blobs a RunItem
// produces: synthesized audio and transcripts. Two backends satisfy the
// same Store interface: a local-disk store (the default) and a NATS
// JetStream object-store-backed one, selected by config.
package artifact

import (
	"context"
	"fmt"

	"github.com/forkadarshp/metrix/internal/domain"
)

// Store persists and retrieves one RunItem's artifact blobs. Put returns a
// locator opaque to the caller; Get accepts exactly what a prior Put
// returned.
type Store interface {
	Put(ctx context.Context, kind domain.ArtifactKind, itemID, ext string, data []byte) (locator string, err error)
	Get(ctx context.Context, locator string) ([]byte, error)
}

// filenameFor builds the `audio_{item_id}.{ext}` / `transcript_{item_id}.txt`
// naming both backends share.
func filenameFor(kind domain.ArtifactKind, itemID, ext string) string {
	switch kind {
	case domain.ArtifactAudio:
		return fmt.Sprintf("audio_%s.%s", itemID, ext)
	case domain.ArtifactTranscript:
		return fmt.Sprintf("transcript_%s.%s", itemID, ext)
	default:
		return fmt.Sprintf("%s_%s.%s", kind, itemID, ext)
	}
}

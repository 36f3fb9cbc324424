package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/forkadarshp/metrix/internal/domain"
	"github.com/forkadarshp/metrix/internal/pathutil"
)

// artifactHeader is the NATS object-store metadata header MetriX stamps on
// every object so a bucket can be inspected (via `nats object ls -l`, say)
// without round-tripping through the repository: which RunItem it belongs
// to and what it should be served as.
const (
	artifactHeaderItemID      = "X-Metrix-Item-Id"
	artifactHeaderContentType = "Content-Type"
)

// NATSStore persists artifacts in a NATS JetStream object-store bucket,
// keyed by the same `audio_{item_id}.{ext}` / `transcript_{item_id}.txt`
// naming the local store uses.
type NATSStore struct {
	bucket string
	store  nats.ObjectStore
}

// NewNATSStore binds to (or creates, if absent) the named JetStream object
// store bucket.
func NewNATSStore(jetstreamContext nats.JetStreamContext, bucketName string) (*NATSStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Artifact storage for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("artifact: create bucket %q: %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("artifact: bind to existing bucket %q: %w", bucketName, err)
		}
	}

	return &NATSStore{bucket: bucketName, store: store}, nil
}

// Put implements Store. It rejects artifact kinds outside the two MetriX
// defines — filenameFor's generic fallback would otherwise let an unknown
// kind silently through to a bucket key no reader expects — and stamps the
// item id and a content type derived from ext as object headers so the
// stored blob is self-describing.
func (s *NATSStore) Put(_ context.Context, kind domain.ArtifactKind, itemID, ext string, data []byte) (string, error) {
	if kind != domain.ArtifactAudio && kind != domain.ArtifactTranscript {
		return "", fmt.Errorf("artifact: unsupported artifact kind %q", kind)
	}

	key := filenameFor(kind, itemID, ext)

	meta := &nats.ObjectMeta{
		Name: key,
		Headers: nats.Header{
			artifactHeaderItemID:      []string{itemID},
			artifactHeaderContentType: []string{pathutil.ContentTypeForExtension(ext)},
		},
	}

	if _, err := s.store.Put(meta, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("artifact: put object %q in bucket %q: %w", key, s.bucket, err)
	}

	return key, nil
}

// Get implements Store.
func (s *NATSStore) Get(_ context.Context, locator string) ([]byte, error) {
	obj, err := s.store.Get(locator)
	if err != nil {
		return nil, fmt.Errorf("artifact: get object %q from bucket %q: %w", locator, s.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("artifact: read object %q: %w", locator, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("artifact: close object %q: %w", locator, closeErr)
	}

	return data, nil
}

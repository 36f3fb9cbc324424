package artifact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forkadarshp/metrix/internal/artifact"
	"github.com/forkadarshp/metrix/internal/domain"
)

func TestLocalStore_PutGet_AudioNaming(t *testing.T) {
	t.Parallel()

	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("fake-wav-bytes")

	locator, err := store.Put(ctx, domain.ArtifactAudio, "item-1", "wav", data)
	require.NoError(t, err)
	require.Equal(t, "audio/audio_item-1.wav", locator)

	got, err := store.Get(ctx, locator)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestLocalStore_PutGet_TranscriptNaming(t *testing.T) {
	t.Parallel()

	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("the quick brown fox")

	locator, err := store.Put(ctx, domain.ArtifactTranscript, "item-2", "txt", data)
	require.NoError(t, err)
	require.Equal(t, "transcripts/transcript_item-2.txt", locator)

	got, err := store.Get(ctx, locator)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestLocalStore_Get_MissingLocatorErrors(t *testing.T) {
	t.Parallel()

	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "audio/does_not_exist.wav")
	require.Error(t, err)
}

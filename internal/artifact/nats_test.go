// Package artifact_test tests the NATS-backed artifact store.
package artifact_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/forkadarshp/metrix/internal/artifact"
	"github.com/forkadarshp/metrix/internal/domain"
)

func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestNATSStore_PutGet(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := artifact.NewNATSStore(jetstreamContext, "test-bucket")
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("hello world, this is a test")

	locator, err := store.Put(ctx, domain.ArtifactAudio, "item-1", "wav", data)
	require.NoError(t, err)
	require.Equal(t, "audio_item-1.wav", locator)

	got, err := store.Get(ctx, locator)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestNATSStore_RejectsUnsupportedArtifactKind(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := artifact.NewNATSStore(jetstreamContext, "test-bucket-kind")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), domain.ArtifactKind("bogus"), "item-3", "wav", []byte("data"))
	require.Error(t, err)
}

func TestNATSStore_TranscriptNaming(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := artifact.NewNATSStore(jetstreamContext, "test-bucket-2")
	require.NoError(t, err)

	ctx := context.Background()

	locator, err := store.Put(ctx, domain.ArtifactTranscript, "item-2", "txt", []byte("a transcript"))
	require.NoError(t, err)
	require.Equal(t, "transcript_item-2.txt", locator)
}

package mockvendor_test

import (
	"context"
	"testing"

	"github.com/forkadarshp/metrix/internal/adapter/mockvendor"
	"github.com/forkadarshp/metrix/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_VendorID(t *testing.T) {
	t.Parallel()

	a := mockvendor.New()
	assert.Equal(t, "mockvendor", a.VendorID())
}

func TestAdapter_RoundTrip_RecoversExactText(t *testing.T) {
	t.Parallel()

	a := mockvendor.New()
	ctx := context.Background()

	synthResult, err := a.Synthesize(ctx, core.SynthesizeRequest{Text: "the quick brown fox"})
	require.NoError(t, err)
	assert.NotEmpty(t, synthResult.AudioBytes)
	assert.Equal(t, "audio/wav", synthResult.ContentType)

	transcribeResult, err := a.Transcribe(ctx, core.TranscribeRequest{
		AudioBytes:  synthResult.AudioBytes,
		ContentType: synthResult.ContentType,
	})
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox", transcribeResult.Transcript)
	require.NotNil(t, transcribeResult.Confidence)
}

func TestAdapter_Synthesize_Deterministic(t *testing.T) {
	t.Parallel()

	a := mockvendor.New()
	ctx := context.Background()

	first, err := a.Synthesize(ctx, core.SynthesizeRequest{Text: "hello"})
	require.NoError(t, err)

	second, err := a.Synthesize(ctx, core.SynthesizeRequest{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, first.AudioBytes, second.AudioBytes)
}

func TestAdapter_Transcribe_RejectsForeignAudio(t *testing.T) {
	t.Parallel()

	a := mockvendor.New()

	_, err := a.Transcribe(context.Background(), core.TranscribeRequest{
		AudioBytes: []byte("not a wav file at all"),
	})
	require.Error(t, err)

	var vendorErr *core.VendorError

	require.ErrorAs(t, err, &vendorErr)
	assert.False(t, vendorErr.Retryable)
}

func TestAdapter_Synthesize_DurationScalesWithTextLength(t *testing.T) {
	t.Parallel()

	a := mockvendor.New()
	ctx := context.Background()

	short, err := a.Synthesize(ctx, core.SynthesizeRequest{Text: "hi"})
	require.NoError(t, err)

	long, err := a.Synthesize(ctx, core.SynthesizeRequest{Text: "this is a much longer sentence than the other one"})
	require.NoError(t, err)

	assert.Greater(t, len(long.AudioBytes), len(short.AudioBytes))
}

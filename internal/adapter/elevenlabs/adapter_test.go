package elevenlabs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forkadarshp/metrix/internal/adapter/elevenlabs"
	"github.com/forkadarshp/metrix/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_VendorID(t *testing.T) {
	t.Parallel()

	a := elevenlabs.New("key", "", 0)
	assert.Equal(t, "elevenlabs", a.VendorID())
}

func TestAdapter_Synthesize_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v1/text-to-speech/")
		assert.Equal(t, "key", r.Header.Get("xi-api-key"))

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake-audio"))
	}))
	defer server.Close()

	a := elevenlabs.New("key", server.URL, 0)

	result, err := a.Synthesize(context.Background(), core.SynthesizeRequest{Text: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-audio"), result.AudioBytes)
}

func TestAdapter_Synthesize_EmptyAudioIsNotRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := elevenlabs.New("key", server.URL, 0)

	_, err := a.Synthesize(context.Background(), core.SynthesizeRequest{Text: "hi"})
	require.Error(t, err)

	var vendorErr *core.VendorError

	require.ErrorAs(t, err, &vendorErr)
	assert.False(t, vendorErr.Retryable)
}

func TestAdapter_Synthesize_RateLimitedIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := elevenlabs.New("key", server.URL, 0)

	_, err := a.Synthesize(context.Background(), core.SynthesizeRequest{Text: "hi"})

	var vendorErr *core.VendorError

	require.ErrorAs(t, err, &vendorErr)
	assert.True(t, vendorErr.Retryable)
}

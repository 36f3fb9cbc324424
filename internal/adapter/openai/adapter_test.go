package openai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forkadarshp/metrix/internal/adapter/openai"
	"github.com/forkadarshp/metrix/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_VendorID(t *testing.T) {
	t.Parallel()

	a := openai.New("key", "", 0)
	assert.Equal(t, "openai", a.VendorID())
}

func TestAdapter_Synthesize_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake-mp3-bytes"))
	}))
	defer server.Close()

	a := openai.New("secret", server.URL, 0)

	result, err := a.Synthesize(context.Background(), core.SynthesizeRequest{
		Text:   "hello world",
		Format: core.FormatMP3,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-mp3-bytes"), result.AudioBytes)
	assert.GreaterOrEqual(t, result.Latency, 0.0)
}

func TestAdapter_Synthesize_ServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	a := openai.New("secret", server.URL, 0)

	_, err := a.Synthesize(context.Background(), core.SynthesizeRequest{Text: "hi"})
	require.Error(t, err)

	var vendorErr *core.VendorError

	require.ErrorAs(t, err, &vendorErr)
	assert.True(t, vendorErr.Retryable)
	assert.Equal(t, 500, vendorErr.Status)
}

func TestAdapter_Synthesize_AuthErrorIsNotRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := openai.New("bad-key", server.URL, 0)

	_, err := a.Synthesize(context.Background(), core.SynthesizeRequest{Text: "hi"})

	var vendorErr *core.VendorError

	require.ErrorAs(t, err, &vendorErr)
	assert.False(t, vendorErr.Retryable)
}

func TestAdapter_Transcribe_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello there"}`))
	}))
	defer server.Close()

	a := openai.New("secret", server.URL, 0)

	result, err := a.Transcribe(context.Background(), core.TranscribeRequest{
		AudioBytes:  []byte("fake-audio"),
		ContentType: "audio/wav",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", result.Transcript)
}

// Package elevenlabs adapts the ElevenLabs text-to-speech API to the shared
// core.Synthesizer contract. ElevenLabs offers no transcription product, so
// this adapter never registers as a core.Transcriber.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/timing"
)

const (
	vendorID = "elevenlabs"

	defaultBaseURL = "https://api.elevenlabs.io"
	defaultTimeout = 60 * time.Second
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM" // ElevenLabs' public "Rachel" demo voice
	defaultModelID = "eleven_monolingual_v1"

	headerAPIKey      = "xi-api-key"
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Adapter is ElevenLabs' TTS-only client.
type Adapter struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// New builds an Adapter. An empty baseURL defaults to the public API; an
// empty/zero timeout defaults to 60s.
func New(apiKey, baseURL string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Adapter{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// VendorID implements core.Adapter.
func (a *Adapter) VendorID() string { return vendorID }

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize implements core.Synthesizer.
func (a *Adapter) Synthesize(ctx context.Context, req core.SynthesizeRequest) (core.SynthesizeResult, error) {
	voice := req.VoiceID
	if voice == "" {
		voice = defaultVoiceID
	}

	model := req.ModelID
	if model == "" {
		model = defaultModelID
	}

	body, err := json.Marshal(synthesisRequest{Text: req.Text, ModelID: model})
	if err != nil {
		return core.SynthesizeResult{}, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", a.baseURL, voice)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return core.SynthesizeResult{}, fmt.Errorf("elevenlabs: build request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, "audio/mpeg")
	httpReq.Header.Set(headerAPIKey, a.apiKey)

	clock := timing.Start()

	resp, err := a.httpClient.Do(httpReq)

	latency := timing.Elapsed(clock)
	if err != nil {
		return core.SynthesizeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilitySynthesize,
			Retryable:  true,
			Err:        err,
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)

		return core.SynthesizeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilitySynthesize,
			Status:     resp.StatusCode,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        fmt.Errorf("status %s: %s", resp.Status, string(respBody)),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.SynthesizeResult{}, fmt.Errorf("elevenlabs: read audio response: %w", err)
	}

	if len(audio) == 0 {
		return core.SynthesizeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilitySynthesize,
			Status:     resp.StatusCode,
			Retryable:  false,
			Err:        fmt.Errorf("received empty audio data"),
		}
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return core.SynthesizeResult{
		AudioBytes:  audio,
		ContentType: contentType,
		Latency:     latency,
	}, nil
}

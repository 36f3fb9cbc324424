// Package deepgram adapts Deepgram's prerecorded (non-streaming)
// transcription API to the shared core.Transcriber contract. Deepgram also
// offers a websocket live-streaming API, but this benchmark's scope is
// final-result transcription only, so this adapter never dials it.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/timing"
)

const (
	vendorID = "deepgram"

	defaultBaseURL = "https://api.deepgram.com"
	defaultTimeout = 60 * time.Second
	defaultModelID = "nova-2"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
)

// Adapter is Deepgram's prerecorded-transcription client.
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

type prerecordedResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements core.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, req core.TranscribeRequest) (core.TranscribeResult, error) {
	model := req.ModelID
	if model == "" {
		model = defaultModelID
	}

	query := url.Values{}
	query.Set("model", model)

	if req.Language != "" {
		query.Set("language", req.Language)
	}

	if req.SmartFormat {
		query.Set("smart_format", "true")
	}

	if req.Punctuate {
		query.Set("punctuate", "true")
	}

	endpoint := fmt.Sprintf("%s/v1/listen?%s", a.baseURL, query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.AudioBytes))
	if err != nil {
		return core.TranscribeResult{}, fmt.Errorf("deepgram: build request: %w", err)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}

	httpReq.Header.Set(headerContentType, contentType)
	httpReq.Header.Set(headerAuthorization, "Token "+a.apiKey)

	clock := timing.Start()

	resp, err := a.httpClient.Do(httpReq)

	latency := timing.Elapsed(clock)
	if err != nil {
		return core.TranscribeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilityTranscribe,
			Retryable:  true,
			Err:        err,
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)

		return core.TranscribeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilityTranscribe,
			Status:     resp.StatusCode,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        fmt.Errorf("status %s: %s", resp.Status, string(respBody)),
		}
	}

	var parsed prerecordedResponse

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.TranscribeResult{}, fmt.Errorf("deepgram: decode response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return core.TranscribeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilityTranscribe,
			Status:     resp.StatusCode,
			Retryable:  false,
			Err:        fmt.Errorf("response contained no transcript alternatives"),
		}
	}

	best := parsed.Results.Channels[0].Alternatives[0]
	confidence := best.Confidence

	return core.TranscribeResult{
		Transcript: best.Transcript,
		Confidence: &confidence,
		Latency:    latency,
	}, nil
}

// Package openai adapts OpenAI's speech synthesis and Whisper transcription
// APIs to the shared core.Synthesizer / core.Transcriber contracts. OpenAI is
// the one vendor in this benchmark that offers both capabilities.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/timing"
)

const (
	vendorID = "openai"

	pathSpeech         = "/v1/audio/speech"
	pathTranscriptions = "/v1/audio/transcriptions"

	defaultBaseURL = "https://api.openai.com"
	defaultTimeout = 60 * time.Second

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"

	formFieldFile           = "file"
	formFieldModel          = "model"
	formFieldLanguage       = "language"
	formFieldResponseFormat = "response_format"
)

// Adapter is OpenAI's combined TTS/STT client.
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

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Synthesize implements core.Synthesizer.
func (a *Adapter) Synthesize(ctx context.Context, req core.SynthesizeRequest) (core.SynthesizeResult, error) {
	voice := req.VoiceID
	if voice == "" {
		voice = "alloy"
	}

	model := req.ModelID
	if model == "" {
		model = "tts-1"
	}

	format := "mp3"
	if req.Format == core.FormatWAV {
		format = "wav"
	}

	body, err := json.Marshal(speechRequest{
		Model:          model,
		Input:          req.Text,
		Voice:          voice,
		ResponseFormat: format,
	})
	if err != nil {
		return core.SynthesizeResult{}, fmt.Errorf("openai: marshal speech request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+pathSpeech, bytes.NewReader(body))
	if err != nil {
		return core.SynthesizeResult{}, fmt.Errorf("openai: build speech request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAuthorization, "Bearer "+a.apiKey)

	clock := timing.Start()

	resp, err := a.httpClient.Do(httpReq)

	latency := timing.Elapsed(clock)
	if err != nil {
		return core.SynthesizeResult{}, classifyTransportError(err, core.CapabilitySynthesize)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.SynthesizeResult{}, classifyStatusError(resp, core.CapabilitySynthesize)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.SynthesizeResult{}, fmt.Errorf("openai: read speech response: %w", err)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType == "" {
		contentType = "audio/" + format
	}

	return core.SynthesizeResult{
		AudioBytes:  audio,
		ContentType: contentType,
		Latency:     latency,
	}, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe implements core.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, req core.TranscribeRequest) (core.TranscribeResult, error) {
	model := req.ModelID
	if model == "" {
		model = "whisper-1"
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(formFieldFile, "audio")
	if err != nil {
		return core.TranscribeResult{}, fmt.Errorf("openai: create form file: %w", err)
	}

	if _, err := part.Write(req.AudioBytes); err != nil {
		return core.TranscribeResult{}, fmt.Errorf("openai: write audio bytes: %w", err)
	}

	if err := writer.WriteField(formFieldModel, model); err != nil {
		return core.TranscribeResult{}, fmt.Errorf("openai: write model field: %w", err)
	}

	if req.Language != "" {
		if err := writer.WriteField(formFieldLanguage, req.Language); err != nil {
			return core.TranscribeResult{}, fmt.Errorf("openai: write language field: %w", err)
		}
	}

	if err := writer.WriteField(formFieldResponseFormat, "json"); err != nil {
		return core.TranscribeResult{}, fmt.Errorf("openai: write response_format field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return core.TranscribeResult{}, fmt.Errorf("openai: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+pathTranscriptions, &buf)
	if err != nil {
		return core.TranscribeResult{}, fmt.Errorf("openai: build transcription request: %w", err)
	}

	httpReq.Header.Set(headerAuthorization, "Bearer "+a.apiKey)
	httpReq.Header.Set(headerContentType, writer.FormDataContentType())

	clock := timing.Start()

	resp, err := a.httpClient.Do(httpReq)

	latency := timing.Elapsed(clock)
	if err != nil {
		return core.TranscribeResult{}, classifyTransportError(err, core.CapabilityTranscribe)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.TranscribeResult{}, classifyStatusError(resp, core.CapabilityTranscribe)
	}

	var parsed transcriptionResponse

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.TranscribeResult{}, fmt.Errorf("openai: decode transcription response: %w", err)
	}

	return core.TranscribeResult{
		Transcript: parsed.Text,
		Latency:    latency,
	}, nil
}

func classifyTransportError(err error, capability core.Capability) error {
	return &core.VendorError{
		Vendor:     vendorID,
		Capability: capability,
		Status:     0,
		Retryable:  true,
		Err:        err,
	}
}

func classifyStatusError(resp *http.Response, capability core.Capability) error {
	body, _ := io.ReadAll(resp.Body)

	return &core.VendorError{
		Vendor:     vendorID,
		Capability: capability,
		Status:     resp.StatusCode,
		Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		Err:        fmt.Errorf("status %s: %s", resp.Status, string(body)),
	}
}

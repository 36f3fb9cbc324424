// Package googlestt adapts Google Cloud Speech-to-Text's synchronous
// Recognize RPC to the shared core.Transcriber contract. Google Cloud also
// offers StreamingRecognize for live partial hypotheses, but this benchmark
// only ever submits a complete audio blob and waits for the final result, so
// this adapter calls Recognize exclusively.
package googlestt

import (
	"context"
	"fmt"

	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/timing"
)

const vendorID = "googlestt"

// Adapter is Google Cloud Speech-to-Text's synchronous-recognition client.
type Adapter struct {
	apiKey string
}

// New builds an Adapter authenticated with apiKey. baseURL and timeout are
// accepted for signature symmetry with the other vendor constructors but the
// Google client library manages its own transport and deadlines via ctx.
func New(apiKey, _ string, _ time.Duration) *Adapter {
	return &Adapter{apiKey: apiKey}
}

// VendorID implements core.Adapter.
func (a *Adapter) VendorID() string { return vendorID }

func encodingFor(contentType string) speechpb.RecognitionConfig_AudioEncoding {
	switch contentType {
	case "audio/wav", "audio/x-wav":
		return speechpb.RecognitionConfig_LINEAR16
	case "audio/flac":
		return speechpb.RecognitionConfig_FLAC
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_MP3
	}
}

// Transcribe implements core.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, req core.TranscribeRequest) (core.TranscribeResult, error) {
	client, err := speech.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return core.TranscribeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilityTranscribe,
			Retryable:  true,
			Err:        fmt.Errorf("create client: %w", err),
		}
	}
	defer client.Close()

	language := req.Language
	if language == "" {
		language = "en-US"
	}

	recognizeReq := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingFor(req.ContentType),
			LanguageCode:               language,
			EnableAutomaticPunctuation: req.Punctuate,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.AudioBytes},
		},
	}

	clock := timing.Start()

	resp, err := client.Recognize(ctx, recognizeReq)

	latency := timing.Elapsed(clock)
	if err != nil {
		return core.TranscribeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilityTranscribe,
			Retryable:  true,
			Err:        err,
		}
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
		return core.TranscribeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilityTranscribe,
			Retryable:  false,
			Err:        fmt.Errorf("recognize returned no alternatives"),
		}
	}

	best := resp.Results[0].Alternatives[0]
	confidence := float64(best.Confidence)

	return core.TranscribeResult{
		Transcript: best.Transcript,
		Confidence: &confidence,
		Latency:    latency,
	}, nil
}

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/forkadarshp/metrix/internal/core"
)

const (
	maxVendorRetries    = 2
	initialRetryBackoff = 200 * time.Millisecond

	synthesizeTimeout = 60 * time.Second
	transcribeTimeout = 120 * time.Second
)

// synthesizeWithRetry calls Synthesize under a per-call timeout, retrying a
// bounded number of times only when the failure is a retryable VendorError.
// The latency recorded by the adapter reflects the attempt that ultimately
// succeeded or the final failing attempt, never the sum across retries,
// since each attempt starts its own stopwatch inside the adapter. Each
// attempt is reported to observability regardless of outcome.
func (e *Engine) synthesizeWithRetry(ctx context.Context, vendor string, synth core.Synthesizer, req core.SynthesizeRequest) (core.SynthesizeResult, error) {
	var lastErr error

	backoff := initialRetryBackoff

	for attempt := 0; attempt <= maxVendorRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, synthesizeTimeout)
		result, err := synth.Synthesize(callCtx, req)
		cancel()

		if e.metrics != nil {
			e.metrics.RecordVendorCall(vendor, string(core.CapabilitySynthesize), result.Latency, err)
		}

		if err == nil {
			return result, nil
		}

		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return core.SynthesizeResult{}, &core.TimeoutError{Vendor: vendor, Capability: core.CapabilitySynthesize, Timeout: synthesizeTimeout.Seconds()}
		}

		lastErr = err

		var vendorErr *core.VendorError
		if !errors.As(err, &vendorErr) || !vendorErr.Retryable || attempt == maxVendorRetries {
			return core.SynthesizeResult{}, err
		}

		time.Sleep(backoff)
		backoff *= 2
	}

	return core.SynthesizeResult{}, lastErr
}

// transcribeWithRetry mirrors synthesizeWithRetry for Transcribe calls.
func (e *Engine) transcribeWithRetry(ctx context.Context, vendor string, transcriber core.Transcriber, req core.TranscribeRequest) (core.TranscribeResult, error) {
	var lastErr error

	backoff := initialRetryBackoff

	for attempt := 0; attempt <= maxVendorRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, transcribeTimeout)
		result, err := transcriber.Transcribe(callCtx, req)
		cancel()

		if e.metrics != nil {
			e.metrics.RecordVendorCall(vendor, string(core.CapabilityTranscribe), result.Latency, err)
		}

		if err == nil {
			return result, nil
		}

		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return core.TranscribeResult{}, &core.TimeoutError{Vendor: vendor, Capability: core.CapabilityTranscribe, Timeout: transcribeTimeout.Seconds()}
		}

		lastErr = err

		var vendorErr *core.VendorError
		if !errors.As(err, &vendorErr) || !vendorErr.Retryable || attempt == maxVendorRetries {
			return core.TranscribeResult{}, err
		}

		time.Sleep(backoff)
		backoff *= 2
	}

	return core.TranscribeResult{}, lastErr
}

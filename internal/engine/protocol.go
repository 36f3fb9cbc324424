package engine

import (
	"context"
	"fmt"

	"github.com/forkadarshp/metrix/internal/audioprobe"
	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/domain"
	"github.com/forkadarshp/metrix/internal/metrics"
)

// processIsolatedTTS implements spec.md §4.5's isolated-TTS protocol: the
// vendor under test synthesizes the input, then a designated evaluator
// vendor transcribes the result back so wer/accuracy/confidence can be
// scored against the original text.
func (e *Engine) processIsolatedTTS(ctx context.Context, run domain.Run, item domain.RunItem) error {
	synth, err := e.registry.ResolveSynthesizer(item.VendorLabel)
	if err != nil {
		return fmt.Errorf("isolated tts: %w", err)
	}

	cleanedText := e.cleaner.Clean(item.InputText)

	synthResult, err := e.synthesizeWithRetry(ctx, item.VendorLabel, synth, core.SynthesizeRequest{
		Text:     cleanedText,
		ModelID:  run.Config.Models[item.VendorLabel],
		VoiceID:  run.Config.VoiceID,
		Format:   defaultSynthesizeFormat,
		Language: run.Config.Language,
	})
	if err != nil {
		return fmt.Errorf("isolated tts: synthesize: %w", err)
	}

	audioLocator, err := e.persistAudio(ctx, item.ID, synthResult.AudioBytes, synthResult.ContentType)
	if err != nil {
		return fmt.Errorf("isolated tts: %w", err)
	}

	probe, err := audioprobe.Probe(synthResult.VendorDuration, synthResult.AudioBytes, synthResult.ContentType)
	if err != nil {
		return fmt.Errorf("isolated tts: probe duration: %w", err)
	}

	evaluator, err := e.registry.ResolveTranscriber(e.defaultEvaluatorVendor)
	if err != nil {
		return fmt.Errorf("isolated tts: resolve evaluator: %w", err)
	}

	transcribeResult, err := e.transcribeWithRetry(ctx, e.defaultEvaluatorVendor, evaluator, core.TranscribeRequest{
		AudioBytes:  synthResult.AudioBytes,
		ContentType: synthResult.ContentType,
		Language:    run.Config.Language,
		SmartFormat: true,
		Punctuate:   true,
	})
	if err != nil {
		return fmt.Errorf("isolated tts: evaluator transcribe: %w", err)
	}

	transcriptLocator, err := e.persistTranscript(ctx, item.ID, transcribeResult.Transcript)
	if err != nil {
		return fmt.Errorf("isolated tts: %w", err)
	}

	wer := metrics.WER(item.InputText, transcribeResult.Transcript)
	accuracy := metrics.Accuracy(wer)
	confidence := metrics.NormalizeConfidence(transcribeResult.Confidence)
	rtf := metrics.RTF(synthResult.Latency, probe.Seconds)

	recordable := []domain.Metric{
		{Name: domain.MetricTTSLatency, Value: synthResult.Latency, Unit: domain.UnitSeconds},
		{Name: domain.MetricAudioDuration, Value: probe.Seconds, Unit: domain.UnitSeconds},
		{Name: domain.MetricWER, Value: wer, Unit: domain.UnitRatio},
		{Name: domain.MetricAccuracy, Value: accuracy, Unit: domain.UnitPercent},
		{Name: domain.MetricConfidence, Value: confidence, Unit: domain.UnitRatio},
	}

	if synthResult.TTFB != nil {
		recordable = append(recordable, domain.Metric{Name: domain.MetricTTSTTFB, Value: *synthResult.TTFB, Unit: domain.UnitSeconds})
	}

	if rtf.Present {
		recordable = append(recordable, domain.Metric{Name: domain.MetricTTSRTF, Value: rtf.Value, Unit: domain.UnitMultiplier})
	}

	if err := e.recordMetrics(ctx, item.ID, recordable); err != nil {
		return fmt.Errorf("isolated tts: %w", err)
	}

	summary := buildSummary(recordable)

	sidecar := item.Sidecar
	sidecar.DurationEstimated = probe.Estimated
	sidecar.AnomalyFlag = rtf.Anomaly

	if err := e.repo.SetItemArtifactLocators(ctx, item.ID, audioLocator, transcriptLocator, sidecar, summary); err != nil {
		return fmt.Errorf("isolated tts: %w", err)
	}

	return nil
}

// processIsolatedSTT implements spec.md §4.5's isolated-STT protocol: a
// designated default synthesizer renders the standardized stimulus, then
// the vendor under test transcribes it.
func (e *Engine) processIsolatedSTT(ctx context.Context, run domain.Run, item domain.RunItem) error {
	synth, err := e.registry.ResolveSynthesizer(e.defaultSynthVendor)
	if err != nil {
		return fmt.Errorf("isolated stt: resolve default synthesizer: %w", err)
	}

	cleanedText := e.cleaner.Clean(item.InputText)

	stimulus, err := e.synthesizeWithRetry(ctx, e.defaultSynthVendor, synth, core.SynthesizeRequest{
		Text:     cleanedText,
		ModelID:  run.Config.Models[e.defaultSynthVendor],
		VoiceID:  run.Config.VoiceID,
		Format:   defaultSynthesizeFormat,
		Language: run.Config.Language,
	})
	if err != nil {
		return fmt.Errorf("isolated stt: synthesize stimulus: %w", err)
	}

	audioLocator, err := e.persistAudio(ctx, item.ID, stimulus.AudioBytes, stimulus.ContentType)
	if err != nil {
		return fmt.Errorf("isolated stt: %w", err)
	}

	probe, err := audioprobe.Probe(stimulus.VendorDuration, stimulus.AudioBytes, stimulus.ContentType)
	if err != nil {
		return fmt.Errorf("isolated stt: probe duration: %w", err)
	}

	transcriber, err := e.registry.ResolveTranscriber(item.VendorLabel)
	if err != nil {
		return fmt.Errorf("isolated stt: %w", err)
	}

	transcribeResult, err := e.transcribeWithRetry(ctx, item.VendorLabel, transcriber, core.TranscribeRequest{
		AudioBytes:  stimulus.AudioBytes,
		ContentType: stimulus.ContentType,
		ModelID:     run.Config.Models[item.VendorLabel],
		Language:    run.Config.Language,
		SmartFormat: true,
		Punctuate:   true,
	})
	if err != nil {
		return fmt.Errorf("isolated stt: transcribe: %w", err)
	}

	transcriptLocator, err := e.persistTranscript(ctx, item.ID, transcribeResult.Transcript)
	if err != nil {
		return fmt.Errorf("isolated stt: %w", err)
	}

	wer := metrics.WER(item.InputText, transcribeResult.Transcript)
	accuracy := metrics.Accuracy(wer)
	confidence := metrics.NormalizeConfidence(transcribeResult.Confidence)
	rtf := metrics.RTF(transcribeResult.Latency, probe.Seconds)

	recordable := []domain.Metric{
		{Name: domain.MetricSTTLatency, Value: transcribeResult.Latency, Unit: domain.UnitSeconds},
		{Name: domain.MetricAudioDuration, Value: probe.Seconds, Unit: domain.UnitSeconds},
		{Name: domain.MetricWER, Value: wer, Unit: domain.UnitRatio},
		{Name: domain.MetricAccuracy, Value: accuracy, Unit: domain.UnitPercent},
		{Name: domain.MetricConfidence, Value: confidence, Unit: domain.UnitRatio},
	}

	if rtf.Present {
		recordable = append(recordable, domain.Metric{Name: domain.MetricSTTRTF, Value: rtf.Value, Unit: domain.UnitMultiplier})
	}

	if err := e.recordMetrics(ctx, item.ID, recordable); err != nil {
		return fmt.Errorf("isolated stt: %w", err)
	}

	summary := buildSummary(recordable)

	sidecar := item.Sidecar
	sidecar.DurationEstimated = probe.Estimated
	sidecar.AnomalyFlag = rtf.Anomaly

	if err := e.repo.SetItemArtifactLocators(ctx, item.ID, audioLocator, transcriptLocator, sidecar, summary); err != nil {
		return fmt.Errorf("isolated stt: %w", err)
	}

	return nil
}

// processChained implements spec.md §4.5's chained protocol: Synthesize
// strictly precedes Transcribe on the exact same bytes, and e2e_latency is
// the sum of the two observed latencies, independent of suspension
// duration between them.
func (e *Engine) processChained(ctx context.Context, run domain.Run, item domain.RunItem) error {
	synth, err := e.registry.ResolveSynthesizer(run.Config.ChainTTSVendor)
	if err != nil {
		return fmt.Errorf("chained: resolve tts vendor: %w", err)
	}

	cleanedText := e.cleaner.Clean(item.InputText)

	synthResult, err := e.synthesizeWithRetry(ctx, run.Config.ChainTTSVendor, synth, core.SynthesizeRequest{
		Text:     cleanedText,
		ModelID:  run.Config.Models[run.Config.ChainTTSVendor],
		VoiceID:  run.Config.VoiceID,
		Format:   defaultSynthesizeFormat,
		Language: run.Config.Language,
	})
	if err != nil {
		return fmt.Errorf("chained: synthesize: %w", err)
	}

	audioLocator, err := e.persistAudio(ctx, item.ID, synthResult.AudioBytes, synthResult.ContentType)
	if err != nil {
		return fmt.Errorf("chained: %w", err)
	}

	probe, err := audioprobe.Probe(synthResult.VendorDuration, synthResult.AudioBytes, synthResult.ContentType)
	if err != nil {
		return fmt.Errorf("chained: probe duration: %w", err)
	}

	transcriber, err := e.registry.ResolveTranscriber(run.Config.ChainSTTVendor)
	if err != nil {
		return fmt.Errorf("chained: resolve stt vendor: %w", err)
	}

	transcribeResult, err := e.transcribeWithRetry(ctx, run.Config.ChainSTTVendor, transcriber, core.TranscribeRequest{
		AudioBytes:  synthResult.AudioBytes,
		ContentType: synthResult.ContentType,
		ModelID:     run.Config.Models[run.Config.ChainSTTVendor],
		Language:    run.Config.Language,
		SmartFormat: true,
		Punctuate:   true,
	})
	if err != nil {
		return fmt.Errorf("chained: transcribe: %w", err)
	}

	transcriptLocator, err := e.persistTranscript(ctx, item.ID, transcribeResult.Transcript)
	if err != nil {
		return fmt.Errorf("chained: %w", err)
	}

	wer := metrics.WER(item.InputText, transcribeResult.Transcript)
	accuracy := metrics.Accuracy(wer)
	confidence := metrics.NormalizeConfidence(transcribeResult.Confidence)
	ttsRTF := metrics.RTF(synthResult.Latency, probe.Seconds)
	sttRTF := metrics.RTF(transcribeResult.Latency, probe.Seconds)
	e2eLatency := synthResult.Latency + transcribeResult.Latency

	recordable := []domain.Metric{
		{Name: domain.MetricTTSLatency, Value: synthResult.Latency, Unit: domain.UnitSeconds},
		{Name: domain.MetricSTTLatency, Value: transcribeResult.Latency, Unit: domain.UnitSeconds},
		{Name: domain.MetricE2ELatency, Value: e2eLatency, Unit: domain.UnitSeconds},
		{Name: domain.MetricAudioDuration, Value: probe.Seconds, Unit: domain.UnitSeconds},
		{Name: domain.MetricWER, Value: wer, Unit: domain.UnitRatio},
		{Name: domain.MetricAccuracy, Value: accuracy, Unit: domain.UnitPercent},
		{Name: domain.MetricConfidence, Value: confidence, Unit: domain.UnitRatio},
	}

	if synthResult.TTFB != nil {
		recordable = append(recordable, domain.Metric{Name: domain.MetricTTSTTFB, Value: *synthResult.TTFB, Unit: domain.UnitSeconds})
	}

	if ttsRTF.Present {
		recordable = append(recordable, domain.Metric{Name: domain.MetricTTSRTF, Value: ttsRTF.Value, Unit: domain.UnitMultiplier})
	}

	if sttRTF.Present {
		recordable = append(recordable, domain.Metric{Name: domain.MetricSTTRTF, Value: sttRTF.Value, Unit: domain.UnitMultiplier})
	}

	if err := e.recordMetrics(ctx, item.ID, recordable); err != nil {
		return fmt.Errorf("chained: %w", err)
	}

	summary := buildSummary(recordable)

	sidecar := item.Sidecar
	sidecar.DurationEstimated = probe.Estimated
	sidecar.AnomalyFlag = ttsRTF.Anomaly || sttRTF.Anomaly

	if err := e.repo.SetItemArtifactLocators(ctx, item.ID, audioLocator, transcriptLocator, sidecar, summary); err != nil {
		return fmt.Errorf("chained: %w", err)
	}

	return nil
}

func (e *Engine) persistAudio(ctx context.Context, itemID string, audioBytes []byte, contentType string) (string, error) {
	ext := extensionForContentType(contentType)

	locator, err := e.store.Put(ctx, domain.ArtifactAudio, itemID, ext, audioBytes)
	if err != nil {
		return "", fmt.Errorf("persist audio: %w", err)
	}

	if err := e.repo.RecordArtifact(ctx, domain.Artifact{
		RunItemID:   itemID,
		Kind:        domain.ArtifactAudio,
		ContentType: contentType,
		Locator:     locator,
		ByteLength:  int64(len(audioBytes)),
	}); err != nil {
		return "", fmt.Errorf("record audio artifact: %w", err)
	}

	return locator, nil
}

func (e *Engine) persistTranscript(ctx context.Context, itemID, transcript string) (string, error) {
	data := []byte(transcript)

	locator, err := e.store.Put(ctx, domain.ArtifactTranscript, itemID, "txt", data)
	if err != nil {
		return "", fmt.Errorf("persist transcript: %w", err)
	}

	if err := e.repo.RecordArtifact(ctx, domain.Artifact{
		RunItemID:   itemID,
		Kind:        domain.ArtifactTranscript,
		ContentType: "text/plain",
		Locator:     locator,
		ByteLength:  int64(len(data)),
	}); err != nil {
		return "", fmt.Errorf("record transcript artifact: %w", err)
	}

	return locator, nil
}

func (e *Engine) recordMetrics(ctx context.Context, itemID string, recordable []domain.Metric) error {
	for i := range recordable {
		recordable[i].RunItemID = itemID

		if err := e.repo.RecordMetric(ctx, recordable[i]); err != nil {
			return fmt.Errorf("record metric %s: %w", recordable[i].Name, err)
		}
	}

	return nil
}

func buildSummary(recorded []domain.Metric) string {
	parts := make([]string, 0, len(recorded))
	for _, m := range recorded {
		parts = append(parts, fmt.Sprintf("%s:%.4f", m.Name, m.Value))
	}

	summary := ""
	for i, p := range parts {
		if i > 0 {
			summary += "|"
		}

		summary += p
	}

	return summary
}

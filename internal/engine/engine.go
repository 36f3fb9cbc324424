// Package engine implements the execution state machine of spec.md §4.5:
// CreateRun expands a Run into RunItems and returns immediately; Execute
// dispatches those items across a bounded per-run worker pool and drives
// each one through its isolated-TTS, isolated-STT, or chained protocol.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/forkadarshp/metrix/internal/artifact"
	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/domain"
	"github.com/forkadarshp/metrix/internal/observability"
	"github.com/forkadarshp/metrix/internal/repository"
	"github.com/forkadarshp/metrix/internal/textnorm"
)

// defaultSynthesizeFormat is the container every Synthesize call in this
// engine requests. WAV keeps audioprobe's exact container-aware duration
// parse in play for every vendor, including ones whose native output is
// mp3 (adapters are expected to transcode or honor the request).
const defaultSynthesizeFormat = core.FormatWAV

// Engine orchestrates run execution over a closed adapter registry, a
// repository, and an artifact store. It holds no per-run state between
// calls; everything it needs to resume or inspect a run lives in the
// repository.
type Engine struct {
	registry               *core.Registry
	repo                    *repository.Repository
	store                  artifact.Store
	cleaner                *textnorm.Cleaner
	log                    *logger.Logger
	events                 *EventPublisher
	metrics                *observability.Metrics
	workersPerRun          int
	defaultSynthVendor     string
	defaultEvaluatorVendor string
}

// New builds an Engine. workersPerRun, defaultSynthVendor, and
// defaultEvaluatorVendor come straight from config.ConcurrencyConfig.
func New(
	registry *core.Registry,
	repo *repository.Repository,
	store artifact.Store,
	events *EventPublisher,
	metrics *observability.Metrics,
	log *logger.Logger,
	workersPerRun int,
	defaultSynthVendor string,
	defaultEvaluatorVendor string,
) *Engine {
	if workersPerRun <= 0 {
		workersPerRun = 4
	}

	return &Engine{
		registry:               registry,
		repo:                   repo,
		store:                  store,
		cleaner:                textnorm.NewCleaner(),
		log:                    log,
		events:                 events,
		metrics:                metrics,
		workersPerRun:          workersPerRun,
		defaultSynthVendor:     defaultSynthVendor,
		defaultEvaluatorVendor: defaultEvaluatorVendor,
	}
}

// CreateRun validates the request, atomically persists the Run and its
// expanded RunItems, then dispatches Execute in the background. It returns
// as soon as the Run row exists, per spec.md §4.5: "actual work proceeds
// asynchronously."
func (e *Engine) CreateRun(ctx context.Context, mode domain.RunMode, vendors []string, inputs []string, cfg domain.RunConfig) (string, int, error) {
	if err := e.validateCreateRun(mode, vendors, inputs, cfg); err != nil {
		return "", 0, err
	}

	runID := uuid.New().String()
	now := time.Now()

	run := domain.Run{
		ID:        runID,
		CreatedAt: now,
		Mode:      mode,
		Vendors:   vendors,
		Config:    cfg,
		Status:    domain.StatusPending,
	}

	items := expandItems(runID, mode, vendors, inputs, cfg, now)

	if err := e.repo.CreateRun(ctx, run, items); err != nil {
		return "", 0, fmt.Errorf("engine: create run: %w", err)
	}

	go e.Execute(runID)

	return runID, len(items), nil
}

func (e *Engine) validateCreateRun(mode domain.RunMode, vendors []string, inputs []string, cfg domain.RunConfig) error {
	if mode != domain.ModeIsolated && mode != domain.ModeChained {
		return &core.ValidationError{Field: "mode", Reason: fmt.Sprintf("must be %q or %q", domain.ModeIsolated, domain.ModeChained)}
	}

	if len(vendors) == 0 {
		return &core.ValidationError{Field: "vendors", Reason: "must be non-empty"}
	}

	if len(inputs) == 0 {
		return &core.ValidationError{Field: "inputs", Reason: "must be non-empty"}
	}

	for _, v := range vendors {
		if !e.registry.KnownVendor(v) {
			return &core.ValidationError{Field: "vendors", Reason: fmt.Sprintf("unknown vendor %q", v)}
		}
	}

	switch mode {
	case domain.ModeIsolated:
		if cfg.Service != domain.ServiceTTS && cfg.Service != domain.ServiceSTT {
			return &core.ValidationError{Field: "service", Reason: "required when mode=isolated"}
		}

		if cfg.Service == domain.ServiceTTS && !e.registry.KnownVendor(e.defaultEvaluatorVendor) {
			return &core.ValidationError{Field: "config", Reason: "no evaluator vendor configured for isolated TTS scoring"}
		}

		if cfg.Service == domain.ServiceSTT && !e.registry.KnownVendor(e.defaultSynthVendor) {
			return &core.ValidationError{Field: "config", Reason: "no default synthesizer vendor configured for isolated STT stimulus"}
		}
	case domain.ModeChained:
		if cfg.ChainTTSVendor == "" || cfg.ChainSTTVendor == "" {
			return &core.ValidationError{Field: "chain", Reason: "chain.tts_vendor and chain.stt_vendor are required when mode=chained"}
		}

		if !e.registry.KnownVendor(cfg.ChainTTSVendor) {
			return &core.ValidationError{Field: "chain.tts_vendor", Reason: fmt.Sprintf("unknown vendor %q", cfg.ChainTTSVendor)}
		}

		if !e.registry.KnownVendor(cfg.ChainSTTVendor) {
			return &core.ValidationError{Field: "chain.stt_vendor", Reason: fmt.Sprintf("unknown vendor %q", cfg.ChainSTTVendor)}
		}
	}

	return nil
}

// expandItems applies spec.md §4.5's expansion laws: isolated mode is the
// cross product of inputs x vendors; chained mode is one item per input,
// labeled "tts→stt".
func expandItems(runID string, mode domain.RunMode, vendors []string, inputs []string, cfg domain.RunConfig, now time.Time) []domain.RunItem {
	var items []domain.RunItem

	switch mode {
	case domain.ModeIsolated:
		for _, input := range inputs {
			for _, vendor := range vendors {
				sidecar := domain.Sidecar{
					ServiceType: cfg.Service,
					Model:       cfg.Models[vendor],
					VoiceID:     cfg.VoiceID,
					Language:    cfg.Language,
				}

				if cfg.Service == domain.ServiceTTS {
					sidecar.TTSVendor = vendor
				} else {
					sidecar.STTVendor = vendor
				}

				items = append(items, domain.RunItem{
					ID:          uuid.New().String(),
					RunID:       runID,
					InputText:   input,
					VendorLabel: vendor,
					Status:      domain.StatusPending,
					Sidecar:     sidecar,
					CreatedAt:   now,
				})
			}
		}
	case domain.ModeChained:
		for _, input := range inputs {
			label := cfg.ChainTTSVendor + "→" + cfg.ChainSTTVendor

			items = append(items, domain.RunItem{
				ID:          uuid.New().String(),
				RunID:       runID,
				InputText:   input,
				VendorLabel: label,
				Status:      domain.StatusPending,
				Sidecar: domain.Sidecar{
					TTSVendor: cfg.ChainTTSVendor,
					STTVendor: cfg.ChainSTTVendor,
					Model:     cfg.Models[cfg.ChainTTSVendor],
					VoiceID:   cfg.VoiceID,
					Language:  cfg.Language,
				},
				CreatedAt: now,
			})
		}
	}

	return items
}

// Execute drives a run's items to completion. It is invoked internally by
// CreateRun in a background goroutine and uses its own context, detached
// from the caller's request lifetime, matching the teacher's
// background-task-per-operation shape.
func (e *Engine) Execute(runID string) {
	ctx := context.Background()

	run, items, err := e.repo.GetRun(ctx, runID)
	if err != nil {
		e.log.Error("engine: execute: load run %s: %v", runID, err)

		return
	}

	started := time.Now()
	if err := e.repo.SetRunStatus(ctx, runID, domain.StatusRunning, &started, nil); err != nil {
		e.log.Error("engine: execute: mark run %s running: %v", runID, err)

		return
	}

	statuses := e.runItemsConcurrently(ctx, run, items)

	finalStatus := aggregateStatus(statuses)
	finished := time.Now()

	if err := e.repo.SetRunStatus(ctx, runID, finalStatus, nil, &finished); err != nil {
		e.log.Error("engine: execute: finalize run %s: %v", runID, err)

		return
	}

	e.events.PublishRunCompleted(ctx, RunCompleted{
		RunID:      runID,
		Status:     string(finalStatus),
		ItemCount:  len(items),
		FinishedAt: finished.UTC().Format(time.RFC3339),
	})
}

// runItemsConcurrently processes items through a channel-backed admission
// semaphore of size workersPerRun, the same worker-pool-over-a-channel
// shape the teacher uses for parallel chunk processing, generalized from a
// fixed slice of text chunks to a run's item list.
func (e *Engine) runItemsConcurrently(ctx context.Context, run domain.Run, items []domain.RunItem) []domain.Status {
	var (
		waitGroup sync.WaitGroup
		mutex     sync.Mutex
	)

	statuses := make([]domain.Status, len(items))
	slots := make(chan struct{}, e.workersPerRun)

	for i, item := range items {
		waitGroup.Add(1)

		go func(index int, it domain.RunItem) {
			defer waitGroup.Done()

			slots <- struct{}{}
			defer func() { <-slots }()

			status := e.processItem(ctx, run, it)

			mutex.Lock()
			statuses[index] = status
			mutex.Unlock()
		}(i, item)
	}

	waitGroup.Wait()
	close(slots)

	return statuses
}

// processItem transitions one RunItem through running -> {completed,
// failed}, never aborting siblings regardless of outcome.
func (e *Engine) processItem(ctx context.Context, run domain.Run, item domain.RunItem) domain.Status {
	if e.metrics != nil {
		e.metrics.ItemStarted(run.ID)
		defer e.metrics.ItemFinished(run.ID)
	}

	var procErr error

	switch {
	case run.Mode == domain.ModeChained:
		procErr = e.processChained(ctx, run, item)
	case run.Config.Service == domain.ServiceTTS:
		procErr = e.processIsolatedTTS(ctx, run, item)
	case run.Config.Service == domain.ServiceSTT:
		procErr = e.processIsolatedSTT(ctx, run, item)
	default:
		procErr = fmt.Errorf("engine: item %s: unroutable run configuration", item.ID)
	}

	finished := time.Now()

	if procErr != nil {
		e.log.Error("engine: item %s failed: %v", item.ID, procErr)

		if err := e.repo.SetItemStatus(ctx, item.ID, domain.StatusFailed, procErr.Error(), &finished); err != nil {
			e.log.Error("engine: item %s: failed to record failure: %v", item.ID, err)
		}

		e.events.PublishRunItemCompleted(ctx, RunItemCompleted{
			RunID: run.ID, ItemID: item.ID, Status: string(domain.StatusFailed), VendorLabel: item.VendorLabel,
		})

		if e.metrics != nil {
			e.metrics.RecordItemTerminal(string(domain.StatusFailed))
		}

		return domain.StatusFailed
	}

	if err := e.repo.SetItemStatus(ctx, item.ID, domain.StatusCompleted, "", &finished); err != nil {
		e.log.Error("engine: item %s: failed to record completion: %v", item.ID, err)

		return domain.StatusFailed
	}

	e.events.PublishRunItemCompleted(ctx, RunItemCompleted{
		RunID: run.ID, ItemID: item.ID, Status: string(domain.StatusCompleted), VendorLabel: item.VendorLabel,
	})

	if e.metrics != nil {
		e.metrics.RecordItemTerminal(string(domain.StatusCompleted))
	}

	return domain.StatusCompleted
}

// aggregateStatus implements spec.md §4.5's run-status law: all completed ->
// completed; all failed -> failed; anything mixed -> partial.
func aggregateStatus(statuses []domain.Status) domain.Status {
	if len(statuses) == 0 {
		return domain.StatusCompleted
	}

	completed, failed := 0, 0

	for _, s := range statuses {
		switch s {
		case domain.StatusCompleted:
			completed++
		case domain.StatusFailed:
			failed++
		}
	}

	switch {
	case completed == len(statuses):
		return domain.StatusCompleted
	case failed == len(statuses):
		return domain.StatusFailed
	default:
		return domain.StatusPartial
	}
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/mpeg":
		return "mp3"
	case "audio/flac":
		return "flac"
	case "audio/ogg":
		return "ogg"
	default:
		return "bin"
	}
}

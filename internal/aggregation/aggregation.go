// Package aggregation computes the dashboard rollups of spec.md §4.7 over a
// lookback window: run-level success rate and average latency, service mix,
// vendor usage, top chained-vendor pairings, and latency percentiles.
package aggregation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forkadarshp/metrix/internal/domain"
	"github.com/forkadarshp/metrix/internal/repository"
)

// Service computes aggregation views over a repository's windowed state.
type Service struct {
	repo               *repository.Repository
	lookbackWindowDays int
}

// New builds an aggregation Service. lookbackWindowDays comes straight from
// config.AggregationConfig; 0 or negative falls back to 7 days.
func New(repo *repository.Repository, lookbackWindowDays int) *Service {
	if lookbackWindowDays <= 0 {
		lookbackWindowDays = 7
	}

	return &Service{repo: repo, lookbackWindowDays: lookbackWindowDays}
}

func (s *Service) window() (time.Time, time.Time) {
	until := time.Now()
	since := until.Add(-time.Duration(s.lookbackWindowDays) * 24 * time.Hour)

	return since, until
}

// DashboardStats is the top-level summary view.
type DashboardStats struct {
	TotalRuns   int     `json:"total_runs"`
	SuccessRate float64 `json:"success_rate"`
	AvgLatency  float64 `json:"avg_latency"`
}

// DashboardStats computes total_runs, success_rate, and avg_latency over the
// lookback window. success_rate = completed/total; avg_latency is the mean
// of e2e_latency where present, else tts_latency or stt_latency.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	since, until := s.window()

	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("aggregation: dashboard stats: %w", err)
	}

	total, completed := 0, 0

	for _, run := range runs {
		if run.CreatedAt.Before(since) || !run.CreatedAt.Before(until) {
			continue
		}

		total++

		if run.Status == domain.StatusCompleted {
			completed++
		}
	}

	items, err := s.repo.TimeWindowItems(ctx, since, until)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("aggregation: dashboard stats: %w", err)
	}

	var (
		latencySum   float64
		latencyCount int
	)

	for _, item := range items {
		latency, ok, err := s.primaryLatency(ctx, item.ID)
		if err != nil {
			return DashboardStats{}, fmt.Errorf("aggregation: dashboard stats: %w", err)
		}

		if ok {
			latencySum += latency
			latencyCount++
		}
	}

	stats := DashboardStats{TotalRuns: total}

	if total > 0 {
		stats.SuccessRate = float64(completed) / float64(total)
	}

	if latencyCount > 0 {
		stats.AvgLatency = latencySum / float64(latencyCount)
	}

	return stats, nil
}

// primaryLatency returns an item's e2e_latency if present, else
// tts_latency, else stt_latency, matching spec.md §4.7's avg_latency
// definition.
func (s *Service) primaryLatency(ctx context.Context, itemID string) (float64, bool, error) {
	metrics, err := s.repo.ItemMetrics(ctx, itemID)
	if err != nil {
		return 0, false, err
	}

	byName := make(map[domain.MetricName]float64, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m.Value
	}

	if v, ok := byName[domain.MetricE2ELatency]; ok {
		return v, true, nil
	}

	if v, ok := byName[domain.MetricTTSLatency]; ok {
		return v, true, nil
	}

	if v, ok := byName[domain.MetricSTTLatency]; ok {
		return v, true, nil
	}

	return 0, false, nil
}

// ServiceMix partitions windowed items by detected service composition.
type ServiceMix struct {
	TTSOnly int `json:"tts_only"`
	STTOnly int `json:"stt_only"`
	E2E     int `json:"e2e"`
}

// ServiceMix computes the service-composition counts for the lookback
// window. Detection uses each item's sidecar ServiceType rather than
// artifact presence: every completed protocol in §4.5 persists both an
// audio and a transcript artifact (the isolated protocols need both to
// score wer/accuracy), so artifact presence alone cannot distinguish a
// TTS-under-test item from an STT-under-test one; the sidecar recorded at
// CreateRun time can.
func (s *Service) ServiceMix(ctx context.Context) (ServiceMix, error) {
	since, until := s.window()

	items, err := s.repo.TimeWindowItems(ctx, since, until)
	if err != nil {
		return ServiceMix{}, fmt.Errorf("aggregation: service mix: %w", err)
	}

	var mix ServiceMix

	for _, item := range items {
		switch item.Sidecar.ServiceType {
		case domain.ServiceTTS:
			mix.TTSOnly++
		case domain.ServiceSTT:
			mix.STTOnly++
		default:
			mix.E2E++
		}
	}

	return mix, nil
}

// VendorUsage counts how often each vendor was selected, broken down by
// capability.
type VendorUsage struct {
	SynthesizeCount int `json:"synthesize_count"`
	TranscribeCount int `json:"transcribe_count"`
}

// VendorUsage computes per-vendor, per-capability selection counts over the
// lookback window.
func (s *Service) VendorUsage(ctx context.Context) (map[string]VendorUsage, error) {
	since, until := s.window()

	items, err := s.repo.TimeWindowItems(ctx, since, until)
	if err != nil {
		return nil, fmt.Errorf("aggregation: vendor usage: %w", err)
	}

	usage := make(map[string]VendorUsage)

	for _, item := range items {
		if item.Sidecar.TTSVendor != "" {
			u := usage[item.Sidecar.TTSVendor]
			u.SynthesizeCount++
			usage[item.Sidecar.TTSVendor] = u
		}

		if item.Sidecar.STTVendor != "" {
			u := usage[item.Sidecar.STTVendor]
			u.TranscribeCount++
			usage[item.Sidecar.STTVendor] = u
		}
	}

	return usage, nil
}

// VendorPairing is one (tts_vendor, stt_vendor) grouping from chained runs.
type VendorPairing struct {
	TTSVendor string  `json:"tts_vendor"`
	STTVendor string  `json:"stt_vendor"`
	Count     int     `json:"count"`
	AvgWER    float64 `json:"avg_wer"`
}

// TopVendorPairings groups chained items by (tts_vendor, stt_vendor) and
// reports the test count and average WER for each pairing, over the
// lookback window.
func (s *Service) TopVendorPairings(ctx context.Context) ([]VendorPairing, error) {
	since, until := s.window()

	items, err := s.repo.TimeWindowItems(ctx, since, until)
	if err != nil {
		return nil, fmt.Errorf("aggregation: top vendor pairings: %w", err)
	}

	type accumulator struct {
		count  int
		werSum float64
		werN   int
	}

	pairKey := func(tts, stt string) string { return tts + "→" + stt }

	accumulated := make(map[string]*accumulator)
	order := make([]string, 0)

	for _, item := range items {
		if item.Sidecar.ServiceType != "" || item.Sidecar.TTSVendor == "" || item.Sidecar.STTVendor == "" {
			continue
		}

		key := pairKey(item.Sidecar.TTSVendor, item.Sidecar.STTVendor)

		acc, ok := accumulated[key]
		if !ok {
			acc = &accumulator{}
			accumulated[key] = acc
			order = append(order, key)
		}

		acc.count++

		metrics, err := s.repo.ItemMetrics(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("aggregation: top vendor pairings: %w", err)
		}

		for _, m := range metrics {
			if m.Name == domain.MetricWER {
				acc.werSum += m.Value
				acc.werN++
			}
		}
	}

	pairings := make([]VendorPairing, 0, len(order))

	for _, key := range order {
		acc := accumulated[key]

		var avgWER float64
		if acc.werN > 0 {
			avgWER = acc.werSum / float64(acc.werN)
		}

		tts, stt := splitPairKey(key)
		pairings = append(pairings, VendorPairing{TTSVendor: tts, STTVendor: stt, Count: acc.count, AvgWER: avgWER})
	}

	return pairings, nil
}

func splitPairKey(key string) (string, string) {
	const sep = "→"

	idx := strings.Index(key, sep)
	if idx < 0 {
		return key, ""
	}

	return key[:idx], key[idx+len(sep):]
}

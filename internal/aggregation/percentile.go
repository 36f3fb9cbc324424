package aggregation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/forkadarshp/metrix/internal/domain"
)

// PercentileResult is one latency metric's p50/p90 over a sample, with the
// sample count that produced it.
type PercentileResult struct {
	P50         float64 `json:"p50"`
	P90         float64 `json:"p90"`
	SampleCount int     `json:"sample_count"`
}

var latencyMetricNames = []domain.MetricName{
	domain.MetricTTSLatency,
	domain.MetricSTTLatency,
	domain.MetricE2ELatency,
}

// Percentiles computes p50/p90 for each latency metric name over the
// lookback window, windowed by each run-item's ingestion time
// (repository created_at) since the data model has no separate event-time
// concept.
func (s *Service) Percentiles(ctx context.Context) (map[domain.MetricName]PercentileResult, error) {
	since, until := s.window()

	items, err := s.repo.TimeWindowItems(ctx, since, until)
	if err != nil {
		return nil, fmt.Errorf("aggregation: percentiles: %w", err)
	}

	samples := make(map[domain.MetricName][]float64)

	for _, item := range items {
		metrics, err := s.repo.ItemMetrics(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("aggregation: percentiles: %w", err)
		}

		for _, m := range metrics {
			if isLatencyMetric(m.Name) {
				samples[m.Name] = append(samples[m.Name], m.Value)
			}
		}
	}

	results := make(map[domain.MetricName]PercentileResult, len(samples))

	for _, name := range latencyMetricNames {
		values, ok := samples[name]
		if !ok || len(values) == 0 {
			continue
		}

		sort.Float64s(values)

		results[name] = PercentileResult{
			P50:         percentileAt(values, 0.5),
			P90:         percentileAt(values, 0.9),
			SampleCount: len(values),
		}
	}

	return results, nil
}

func isLatencyMetric(name domain.MetricName) bool {
	for _, n := range latencyMetricNames {
		if n == name {
			return true
		}
	}

	return false
}

// percentileAt implements spec.md §4.7's percentile algorithm: for a sorted
// sample, p_k sits at fractional index (n-1)*k, linearly interpolated
// between the two straddling elements.
func percentileAt(sorted []float64, k float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	if n == 1 {
		return sorted[0]
	}

	idx := k * float64(n-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

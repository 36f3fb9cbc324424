package repository

import (
	"encoding/json"
	"strings"

	"github.com/forkadarshp/metrix/internal/domain"
)

func runToRow(run domain.Run) (gormRun, error) {
	modelsJSON, err := json.Marshal(run.Config.Models)
	if err != nil {
		return gormRun{}, err
	}

	return gormRun{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		Mode:       string(run.Mode),
		Vendors:    strings.Join(run.Vendors, ","),
		Service:    string(run.Config.Service),
		ChainTTS:   run.Config.ChainTTSVendor,
		ChainSTT:   run.Config.ChainSTTVendor,
		Models:     string(modelsJSON),
		VoiceID:    run.Config.VoiceID,
		Language:   run.Config.Language,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}, nil
}

func rowToRun(row gormRun) (domain.Run, error) {
	var models map[string]string

	if row.Models != "" {
		if err := json.Unmarshal([]byte(row.Models), &models); err != nil {
			return domain.Run{}, err
		}
	}

	var vendors []string
	if row.Vendors != "" {
		vendors = strings.Split(row.Vendors, ",")
	}

	return domain.Run{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		Mode:      domain.RunMode(row.Mode),
		Vendors:   vendors,
		Config: domain.RunConfig{
			Service:        domain.ServiceType(row.Service),
			ChainTTSVendor: row.ChainTTS,
			ChainSTTVendor: row.ChainSTT,
			Models:         models,
			VoiceID:        row.VoiceID,
			Language:       row.Language,
		},
		Status:     domain.Status(row.Status),
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}, nil
}

func itemToRow(item domain.RunItem) gormRunItem {
	return gormRunItem{
		ID:                item.ID,
		RunID:             item.RunID,
		InputText:         item.InputText,
		VendorLabel:       item.VendorLabel,
		Status:            string(item.Status),
		FailureReason:     item.FailureReason,
		MetricsSummary:    item.MetricsSummary,
		AudioLocator:      item.AudioLocator,
		TranscriptLoc:     item.TranscriptLoc,
		ServiceType:       string(item.Sidecar.ServiceType),
		TTSVendor:         item.Sidecar.TTSVendor,
		STTVendor:         item.Sidecar.STTVendor,
		Model:             item.Sidecar.Model,
		VoiceID:           item.Sidecar.VoiceID,
		Language:          item.Sidecar.Language,
		DurationEstimated: item.Sidecar.DurationEstimated,
		AnomalyFlag:       item.Sidecar.AnomalyFlag,
		CreatedAt:         item.CreatedAt,
		FinishedAt:        item.FinishedAt,
	}
}

func rowToItem(row gormRunItem) domain.RunItem {
	return domain.RunItem{
		ID:             row.ID,
		RunID:          row.RunID,
		InputText:      row.InputText,
		VendorLabel:    row.VendorLabel,
		Status:         domain.Status(row.Status),
		FailureReason:  row.FailureReason,
		MetricsSummary: row.MetricsSummary,
		AudioLocator:   row.AudioLocator,
		TranscriptLoc:  row.TranscriptLoc,
		Sidecar: domain.Sidecar{
			ServiceType:       domain.ServiceType(row.ServiceType),
			TTSVendor:         row.TTSVendor,
			STTVendor:         row.STTVendor,
			Model:             row.Model,
			VoiceID:           row.VoiceID,
			Language:          row.Language,
			DurationEstimated: row.DurationEstimated,
			AnomalyFlag:       row.AnomalyFlag,
		},
		CreatedAt:  row.CreatedAt,
		FinishedAt: row.FinishedAt,
	}
}

func metricToRow(metric domain.Metric) gormMetric {
	return gormMetric{
		RunItemID: metric.RunItemID,
		Name:      string(metric.Name),
		Value:     metric.Value,
		Unit:      string(metric.Unit),
	}
}

func rowToMetric(row gormMetric) domain.Metric {
	return domain.Metric{
		RunItemID: row.RunItemID,
		Name:      domain.MetricName(row.Name),
		Value:     row.Value,
		Unit:      domain.Unit(row.Unit),
	}
}

func artifactToRow(a domain.Artifact) gormArtifact {
	return gormArtifact{
		RunItemID:   a.RunItemID,
		Kind:        string(a.Kind),
		ContentType: a.ContentType,
		Locator:     a.Locator,
		ByteLength:  a.ByteLength,
	}
}

func rowToArtifact(row gormArtifact) domain.Artifact {
	return domain.Artifact{
		RunItemID:   row.RunItemID,
		Kind:        domain.ArtifactKind(row.Kind),
		ContentType: row.ContentType,
		Locator:     row.Locator,
		ByteLength:  row.ByteLength,
	}
}

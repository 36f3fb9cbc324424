package httpapi

import (
	"time"

	"github.com/forkadarshp/metrix/internal/aggregation"
	"github.com/forkadarshp/metrix/internal/domain"
)

// createRunRequest is the POST /v1/runs body. Inputs may be given directly
// or resolved from a reference script; CreateRun rejects the request if
// both or neither are set.
type createRunRequest struct {
	Mode           string            `json:"mode"`
	Vendors        []string          `json:"vendors"`
	Inputs         []string          `json:"inputs,omitempty"`
	ScriptID       string            `json:"script_id,omitempty"`
	BatchInput     string            `json:"batch_input,omitempty"`
	BatchFormat    string            `json:"batch_format,omitempty"`
	Service        string            `json:"service,omitempty"`
	ChainTTSVendor string            `json:"chain_tts_vendor,omitempty"`
	ChainSTTVendor string            `json:"chain_stt_vendor,omitempty"`
	Models         map[string]string `json:"models,omitempty"`
	VoiceID        string            `json:"voice_id,omitempty"`
	Language       string            `json:"language,omitempty"`
}

type createRunResponse struct {
	RunID             string `json:"run_id"`
	AcceptedItemCount int    `json:"accepted_items_count"`
}

type runDTO struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Mode       string    `json:"mode"`
	Vendors    []string  `json:"vendors"`
	Status     string    `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Items      []itemDTO `json:"items"`
}

type itemDTO struct {
	ID             string         `json:"id"`
	InputText      string         `json:"input_text"`
	VendorLabel    string         `json:"vendor_label"`
	Status         string         `json:"status"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	MetricsSummary string         `json:"metrics_summary"`
	AudioLocator   string         `json:"audio_path,omitempty"`
	TranscriptLoc  string         `json:"transcript_path,omitempty"`
	Sidecar        domain.Sidecar `json:"sidecar"`
}

func toRunDTO(run domain.Run, items []domain.RunItem) runDTO {
	out := runDTO{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		Mode:       string(run.Mode),
		Vendors:    run.Vendors,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Items:      make([]itemDTO, 0, len(items)),
	}

	for _, item := range items {
		out.Items = append(out.Items, toItemDTO(item))
	}

	return out
}

func toItemDTO(item domain.RunItem) itemDTO {
	return itemDTO{
		ID:             item.ID,
		InputText:      item.InputText,
		VendorLabel:    item.VendorLabel,
		Status:         string(item.Status),
		FailureReason:  item.FailureReason,
		MetricsSummary: item.MetricsSummary,
		AudioLocator:   item.AudioLocator,
		TranscriptLoc:  item.TranscriptLoc,
		Sidecar:        item.Sidecar,
	}
}

type scriptDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ItemCount int      `json:"item_count"`
	Items     []string `json:"items,omitempty"`
}

func toScriptDTO(script domain.Script) scriptDTO {
	texts := make([]string, len(script.Items))
	for _, item := range script.Items {
		if item.Index >= 0 && item.Index < len(texts) {
			texts[item.Index] = item.Text
		}
	}

	return scriptDTO{ID: script.ID, Name: script.Name, ItemCount: len(script.Items), Items: texts}
}

type dashboardStatsResponse struct {
	aggregation.DashboardStats
	ServiceMix  aggregation.ServiceMix          `json:"service_mix"`
	VendorUsage map[string]aggregation.VendorUsage `json:"vendor_usage"`
}

type percentilesResponse struct {
	Metrics map[domain.MetricName]aggregation.PercentileResult `json:"metrics"`
}

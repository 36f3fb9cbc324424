package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"partial":   true,
}

// runClient talks to a MetriX server's Run API.
type runClient struct {
	baseURL string
	http    *http.Client
}

func newRunClient(baseURL string, timeout time.Duration) *runClient {
	return &runClient{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// runView and itemView mirror the subset of runDTO/itemDTO fields the CLI
// needs to print a summary; they decode loosely so server additions don't
// break this client.
type runView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type itemView struct {
	ID             string `json:"id"`
	VendorLabel    string `json:"vendor_label"`
	Status         string `json:"status"`
	MetricsSummary string `json:"metrics_summary"`
}

type runDetail struct {
	runView
	Items []itemView `json:"items"`
}

func (c *runClient) createRun(ctx context.Context, flags appFlags) (string, int, error) {
	payload := map[string]any{
		"mode":    flags.mode,
		"vendors": vendorList(flags.vendors),
		"inputs":  inputTexts(flags.text),
	}

	switch flags.mode {
	case "isolated":
		payload["service"] = flags.service
	case "chained":
		payload["chain_tts_vendor"] = flags.ttsVendor
		payload["chain_stt_vendor"] = flags.sttVendor
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/runs", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", 0, fmt.Errorf("server responded %s: %s", resp.Status, readBody(resp.Body))
	}

	var out struct {
		RunID             string `json:"run_id"`
		AcceptedItemCount int    `json:"accepted_items_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}

	return out.RunID, out.AcceptedItemCount, nil
}

func (c *runClient) getRun(ctx context.Context, runID string) (runDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/runs/"+runID, nil)
	if err != nil {
		return runDetail{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return runDetail{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return runDetail{}, fmt.Errorf("server responded %s: %s", resp.Status, readBody(resp.Body))
	}

	var detail runDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return runDetail{}, fmt.Errorf("decode response: %w", err)
	}

	return detail, nil
}

// pollUntilTerminal repeatedly fetches the run until it reaches a terminal
// status or the context deadline expires.
func (c *runClient) pollUntilTerminal(ctx context.Context, runID string, interval time.Duration) (runView, []itemView, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		detail, err := c.getRun(ctx, runID)
		if err != nil {
			return runView{}, nil, err
		}

		if terminalStatuses[detail.Status] {
			return detail.runView, detail.Items, nil
		}

		select {
		case <-ctx.Done():
			return runView{}, nil, fmt.Errorf("waiting for run %s: %w", runID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}

	return string(data)
}

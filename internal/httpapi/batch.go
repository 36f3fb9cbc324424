package httpapi

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// batchTextKeys is the fallback order a batch record's text is read from,
// mirroring the reference service's `obj.get("text") or obj.get("prompt")
// or obj.get("sentence")`.
var batchTextKeys = []string{"text", "prompt", "sentence"}

// parseBatchInput turns a pasted batch payload into an ordered list of
// input texts. format selects how raw is interpreted ("jsonl", "csv", or
// "txt", the default); malformed jsonl lines and a CSV that fails to parse
// both degrade to one-line-per-text rather than rejecting the whole batch.
func parseBatchInput(raw, format string) []string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jsonl":
		return parseJSONLBatch(raw)
	case "csv":
		return parseCSVBatch(raw)
	default:
		return parsePlainTextBatch(raw)
	}
}

func parsePlainTextBatch(raw string) []string {
	var texts []string

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		addBatchText(&texts, scanner.Text())
	}

	return texts
}

func parseJSONLBatch(raw string) []string {
	var texts []string

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}

		addBatchText(&texts, firstBatchValue(obj))
	}

	return texts
}

func parseCSVBatch(raw string) []string {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return parsePlainTextBatch(raw)
	}

	var texts []string

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			// A malformed row invalidates the whole parse; the reference
			// service discards everything read so far and re-reads raw as
			// plain text rather than returning a partial batch.
			return parsePlainTextBatch(raw)
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		addBatchText(&texts, firstBatchValue(row))
	}

	return texts
}

func firstBatchValue(row map[string]any) string {
	for _, key := range batchTextKeys {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}

		if s := fmt.Sprintf("%v", v); s != "" {
			return s
		}
	}

	return ""
}

func addBatchText(texts *[]string, text string) {
	t := strings.TrimSpace(text)
	if t != "" {
		*texts = append(*texts, t)
	}
}

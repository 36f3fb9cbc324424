package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (a *API) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())

		return
	}

	inputs, err := a.resolveInputs(r, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	cfg := domain.RunConfig{
		Service:        domain.ServiceType(req.Service),
		ChainTTSVendor: req.ChainTTSVendor,
		ChainSTTVendor: req.ChainSTTVendor,
		Models:         req.Models,
		VoiceID:        req.VoiceID,
		Language:       req.Language,
	}

	runID, accepted, err := a.engine.CreateRun(r.Context(), domain.RunMode(req.Mode), req.Vendors, inputs, cfg)
	if err != nil {
		status := http.StatusInternalServerError

		var validationErr *core.ValidationError
		if errors.As(err, &validationErr) {
			status = http.StatusBadRequest
		}

		writeError(w, status, err.Error())

		return
	}

	writeJSON(w, http.StatusAccepted, createRunResponse{RunID: runID, AcceptedItemCount: accepted})
}

// resolveInputs honors spec.md §6's CreateRun contract: inputs come from
// exactly one of direct text, a reference script, or a pasted batch
// payload (txt/jsonl/csv, with a text/prompt/sentence key fallback for the
// structured formats).
func (a *API) resolveInputs(r *http.Request, req createRunRequest) ([]string, error) {
	sourceCount := 0
	if len(req.Inputs) > 0 {
		sourceCount++
	}

	if req.ScriptID != "" {
		sourceCount++
	}

	if req.BatchInput != "" {
		sourceCount++
	}

	if sourceCount > 1 {
		return nil, errBothInputsAndScript
	}

	if len(req.Inputs) > 0 {
		return req.Inputs, nil
	}

	if req.BatchInput != "" {
		texts := parseBatchInput(req.BatchInput, req.BatchFormat)
		if len(texts) == 0 {
			return nil, errBatchInputEmpty
		}

		return texts, nil
	}

	if req.ScriptID == "" {
		return nil, errNoInputsGiven
	}

	scripts, err := a.repo.ListScripts(r.Context())
	if err != nil {
		return nil, err
	}

	for _, script := range scripts {
		if script.ID == req.ScriptID {
			texts := make([]string, len(script.Items))
			for _, item := range script.Items {
				if item.Index >= 0 && item.Index < len(texts) {
					texts[item.Index] = item.Text
				}
			}

			return texts, nil
		}
	}

	return nil, errScriptNotFound
}

func (a *API) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := a.repo.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	out := make([]runDTO, 0, len(runs))

	for _, run := range runs {
		items, err := a.repo.ListItemsByRun(r.Context(), run.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())

			return
		}

		out = append(out, toRunDTO(run, items))
	}

	writeJSON(w, http.StatusOK, out)
}

func (a *API) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	run, items, err := a.repo.GetRun(r.Context(), runID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())

			return
		}

		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, toRunDTO(run, items))
}

func (a *API) getArtifact(w http.ResponseWriter, r *http.Request) {
	kind := domain.ArtifactKind(chi.URLParam(r, "kind"))
	filename := chi.URLParam(r, "filename")

	itemID, err := itemIDFromFilename(kind, filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	artifact, err := a.repo.FetchArtifact(r.Context(), itemID, kind)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())

			return
		}

		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	data, err := a.store.Get(r.Context(), artifact.Locator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// itemIDFromFilename strips spec.md §6's naming convention
// (`audio_{item_id}.{ext}` / `transcript_{item_id}.txt`) back down to the
// bare item id. Item ids are UUIDs and never contain underscores, so a
// single prefix trim is unambiguous.
func itemIDFromFilename(kind domain.ArtifactKind, filename string) (string, error) {
	prefix := string(kind) + "_"

	if !strings.HasPrefix(filename, prefix) {
		return "", errMalformedFilename
	}

	rest := strings.TrimPrefix(filename, prefix)

	dot := strings.LastIndex(rest, ".")
	if dot <= 0 {
		return "", errMalformedFilename
	}

	return rest[:dot], nil
}

func (a *API) listScripts(w http.ResponseWriter, r *http.Request) {
	scripts, err := a.repo.ListScripts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	out := make([]scriptDTO, 0, len(scripts))
	for _, script := range scripts {
		out = append(out, toScriptDTO(script))
	}

	writeJSON(w, http.StatusOK, out)
}

func (a *API) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.agg.DashboardStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	mix, err := a.agg.ServiceMix(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	usage, err := a.agg.VendorUsage(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dashboardStatsResponse{DashboardStats: stats, ServiceMix: mix, VendorUsage: usage})
}

func (a *API) dashboardPairings(w http.ResponseWriter, r *http.Request) {
	pairings, err := a.agg.TopVendorPairings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, pairings)
}

func (a *API) dashboardPercentiles(w http.ResponseWriter, r *http.Request) {
	percentiles, err := a.agg.Percentiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, percentilesResponse{Metrics: percentiles})
}

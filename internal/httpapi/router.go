// Package httpapi exposes the Run API HTTP surface of spec.md §6 as a chi
// router: create and inspect runs, fetch artifacts, list reference scripts,
// and read dashboard rollups. It has no auth, no HTML rendering, and no
// websockets, per spec.md §1's non-goals.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forkadarshp/metrix/internal/aggregation"
	"github.com/forkadarshp/metrix/internal/artifact"
	"github.com/forkadarshp/metrix/internal/engine"
	"github.com/forkadarshp/metrix/internal/repository"
)

// API wires the engine, repository, artifact store, and aggregation
// service into HTTP handlers.
type API struct {
	engine *engine.Engine
	repo   *repository.Repository
	store  artifact.Store
	agg    *aggregation.Service
}

// NewRouter builds the chi router for the Run API.
func NewRouter(eng *engine.Engine, repo *repository.Repository, store artifact.Store, agg *aggregation.Service) http.Handler {
	a := &API{engine: eng, repo: repo, store: store, agg: agg}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", a.createRun)
		r.Get("/runs", a.listRuns)
		r.Get("/runs/{id}", a.getRun)
		r.Get("/artifacts/{kind}/{filename}", a.getArtifact)
		r.Get("/scripts", a.listScripts)
		r.Get("/dashboard/stats", a.dashboardStats)
		r.Get("/dashboard/pairings", a.dashboardPairings)
		r.Get("/dashboard/percentiles", a.dashboardPercentiles)
	})

	return r
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

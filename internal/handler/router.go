package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/llm"
	"github.com/capitalize-ai/thinking-workspace/internal/middleware"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Workspaces *workspace.Service
	Hub        *engine.Hub
	Refiner    *llm.Refiner
	Pinger     storage.Pinger
	Logger     *logger.Logger

	CORSOrigins []string

	// Zero disables the corresponding limiter.
	RateLimitRequests          int
	WorkspaceRateLimitRequests int
	RateLimitWindow            time.Duration
}

// NewRouter builds the API router.
func NewRouter(d Deps) http.Handler {
	log := logger.OrGlobal(d.Logger)
	if d.Refiner == nil {
		d.Refiner = llm.NewRefiner(nil, log)
	}

	health := NewHealthHandler(d.Pinger)
	workspaces := NewWorkspaceHandler(d.Workspaces, log)
	branches := NewBranchHandler(d.Workspaces, log)
	messages := NewMessageHandler(d.Workspaces, log)
	streams := NewStreamHandler(d.Workspaces, d.Hub, log)
	prompts := NewPromptHandler(d.Workspaces, d.Refiner, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigins...))

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if d.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(d.RateLimitRequests, d.RateLimitWindow))
		}

		r.Put("/pending-prompt", prompts.SetPending)
		r.Get("/pending-prompt", prompts.TakePending)
		r.Post("/refine", prompts.Refine)
		r.Get("/preferences/sidebar", prompts.GetSidebar)
		r.Put("/preferences/sidebar", prompts.PutSidebar)

		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", workspaces.List)
			r.Post("/", workspaces.Create)

			r.Route("/{workspaceID}", func(r chi.Router) {
				r.Get("/", workspaces.Get)
				r.Patch("/", workspaces.Update)
				r.Delete("/", workspaces.Delete)

				r.Get("/events", streams.Stream)
				r.Post("/stop", messages.Stop)

				r.Route("/messages", func(r chi.Router) {
					r.Get("/", messages.List)
					if d.WorkspaceRateLimitRequests > 0 {
						r.With(middleware.WorkspaceRateLimit(d.WorkspaceRateLimitRequests, d.RateLimitWindow)).
							Post("/", messages.Submit)
					} else {
						r.Post("/", messages.Submit)
					}

					r.Route("/{messageID}", func(r chi.Router) {
						r.Delete("/", messages.Delete)
						r.Post("/regenerate", messages.Regenerate)
						r.Post("/retry", messages.Retry)
						r.Put("/pin", messages.Pin)
						r.Delete("/pin", messages.Unpin)
					})
				})

				r.Route("/branches", func(r chi.Router) {
					r.Get("/", branches.List)
					r.Post("/", branches.Fork)

					r.Route("/{branchID}", func(r chi.Router) {
						r.Patch("/", branches.Rename)
						r.Delete("/", branches.Delete)
						r.Post("/activate", branches.Activate)
						r.Get("/ancestors", branches.Ancestors)
						r.Get("/messages", messages.List)
						r.Get("/metadata", branches.GetMetadata)
						r.Put("/metadata", branches.PutMetadata)
					})
				})
			})
		})
	})

	return r
}

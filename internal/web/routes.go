package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/event-faces/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.config, s.deps.Engine, s.deps.Store, s.deps.Registry, s.jobManager, s.logger)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Long-running face operations
		r.Post("/match", facesHandler.StartMatch)
		r.Post("/cluster", facesHandler.StartCluster)

		// Jobs
		r.Get("/jobs", facesHandler.List)
		r.Get("/jobs/{jobId}", facesHandler.Status)
		r.Get("/jobs/{jobId}/events", facesHandler.Events)
		r.Delete("/jobs/{jobId}", facesHandler.Cancel)
	})
}

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/roi-insights/internal/config"
	"github.com/terra-clan/roi-insights/internal/models"
	"github.com/terra-clan/roi-insights/internal/survey"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	surveys        survey.Manager
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	manager survey.Manager,
	clients ClientStore,
) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		config:         cfg,
		surveys:        manager,
		authMiddleware: NewAuthMiddleware(clients),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.timeoutMiddleware)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	auth := s.authMiddleware

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.With(auth.RequirePermission(models.PermSurveysRead)).Get("/taxonomy", s.handleGetTaxonomy)

		// Surveys
		r.Route("/surveys", func(r chi.Router) {
			r.With(auth.RequirePermission(models.PermSurveysRead)).Get("/", s.handleListSurveys)

			r.Route("/{name}", func(r chi.Router) {
				r.With(auth.RequirePermission(models.PermSurveysRead)).Get("/", s.handleGetSurvey)
				r.With(auth.RequirePermission(models.PermSurveysWrite)).Put("/", s.handleSaveSurvey)
				r.With(auth.RequirePermission(models.PermSurveysWrite)).Delete("/", s.handleDeleteSurvey)
				r.With(auth.RequirePermission(models.PermSurveysWrite)).Post("/duplicate", s.handleDuplicateSurvey)
				r.With(auth.RequirePermission(models.PermSurveysRead)).Get("/waterfall", s.handleGetWaterfall)

				r.With(auth.RequirePermission(models.PermReportsWrite)).Post("/analysis", s.handleAnalyze)
				r.With(auth.RequirePermission(models.PermReportsWrite)).Get("/analysis/ws", s.handleAnalysisWS)

				// Reports
				r.Route("/reports", func(r chi.Router) {
					r.Use(auth.RequirePermission(models.PermReportsRead))
					r.Get("/", s.handleListReports)
					r.Get("/{version}", s.handleGetReport)
					r.Get("/{version}/pdf", s.handleReportPDF)
					r.Get("/{version}/html", s.handleReportHTML)
				})
			})
		})

		// Wizard sessions
		r.Route("/wizards", func(r chi.Router) {
			r.Use(auth.RequirePermission(models.PermWizardsWrite))
			r.Post("/", s.handleStartWizard)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetWizard)
				r.Delete("/", s.handleDiscardWizard)
				r.Put("/answers/{questionId}", s.handleSetWizardAnswer)
				r.Post("/advance", s.handleAdvanceWizard)
				r.Post("/retreat", s.handleRetreatWizard)
				r.Post("/jump", s.handleJumpWizard)
				r.Post("/finalize", s.handleFinalizeWizard)
				r.Post("/save", s.handleSaveWizard)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// timeoutMiddleware bounds request handling; websocket upgrades are long lived
// and skip it
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	timed := middleware.Timeout(s.config.RequestTimeout)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		timed.ServeHTTP(w, r)
	})
}

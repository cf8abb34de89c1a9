package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/salesbrain/internal/api/middlewares"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(a *App) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv}
}

// Router returns the HTTP API. Routes under /api require a bearer token
// when JWT_SECRET is configured.
func (a *App) Router() http.Handler {
	productHandler := handlers.NewProductHandler(a.Products, a.Documents)
	docHandler := handlers.NewDocumentHandler(a.Documents)
	searchHandler := handlers.NewSearchHandler(a.Products, a.Searcher)
	chatHandler := handlers.NewChatHandler(a.Orchestrator, a.RunOptions())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		if a.Config.JWTSecret != "" {
			api.Use(appMiddleware.JWTMiddleware(a.Config.JWTSecret))
		} else {
			logger.Warnw("JWT_SECRET not set, API routes are unauthenticated")
		}

		api.Get("/products", productHandler.ListProducts)
		api.Post("/products", productHandler.CreateProduct)
		api.Delete("/products/{id}", productHandler.DeleteProduct)
		api.Get("/products/{id}/documents", productHandler.ListDocuments)

		api.Post("/documents/upload", docHandler.UploadDocument)
		api.Get("/documents/{id}", docHandler.GetDocument)
		api.Delete("/documents/{id}", docHandler.DeleteDocument)
		api.Post("/documents/{id}/resume", docHandler.ResumeDocument)

		api.Group(func(slow chi.Router) {
			slow.Use(middleware.Timeout(2 * time.Minute))
			slow.Post("/search", searchHandler.Search)
			slow.Post("/chat", chatHandler.Chat)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Infow("http request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"bytes", ww.BytesWritten(), "duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Infow("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

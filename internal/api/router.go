package api

import (
	"net/http"

	"github.com/Rrens/zara-ai/internal/api/handler"
	customMiddleware "github.com/Rrens/zara-ai/internal/api/middleware"
	"github.com/Rrens/zara-ai/internal/chat"
	"github.com/Rrens/zara-ai/internal/config"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/Rrens/zara-ai/internal/offline"
	"github.com/Rrens/zara-ai/internal/service"
	"github.com/Rrens/zara-ai/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the components the HTTP layer serves
type Deps struct {
	Config   *config.Config
	Sessions *session.Store
	Chat     *chat.Controller
	Study    *service.StudyService
	LLM      *llm.Router
	Storage  handler.Pinger
	Monitor  *offline.Monitor
	// Limiter throttles message sends; nil disables rate limiting
	Limiter customMiddleware.Limiter
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Chat)
	chatHandler := handler.NewChatHandler(deps.Chat)
	studyHandler := handler.NewStudyHandler(deps.Study)
	uploadHandler := handler.NewUploadHandler(handler.DefaultMaxAttachmentBytes)
	connectivityHandler := handler.NewConnectivityHandler(deps.Monitor)

	limit := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		limit = customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Streaming routes stay open as long as the generation runs
		r.Get("/chat/events", chatHandler.Events)
		r.With(limit).Post("/chat/messages", chatHandler.Send)

		r.Group(func(r chi.Router) {
			if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
				r.Use(middleware.Timeout(timeout))
			}

			// Health check
			r.Get("/health", handler.HealthCheck)
			r.Get("/ready", handler.ReadyCheck(deps.Storage))

			// LLM providers
			r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))

			r.Get("/connectivity", connectivityHandler.Get)
			r.Put("/connectivity", connectivityHandler.Set)

			// Session routes
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/new", sessionHandler.New)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Patch("/", sessionHandler.Rename)
					r.Delete("/", sessionHandler.Delete)
				})
			})

			// Chat routes
			r.Get("/chat", chatHandler.Get)
			r.Post("/chat/abort", chatHandler.Abort)
			r.Post("/chat/attachments", uploadHandler.Attachment)

			// Study routes
			r.Route("/study", func(r chi.Router) {
				r.Use(limit)
				r.Post("/flashcards", studyHandler.Flashcards)
				r.Post("/exam", studyHandler.Exam)
				r.Post("/plan", studyHandler.Plan)
			})
		})
	})

	return r
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
)

// RouterConfig carries the HTTP-level settings of the router.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter wires the REST API and the ranking feed onto a chi router.
func NewRouter(service *app.QuizService, authn *auth.Authenticator, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	api := NewAPIHandler(service, logger)
	feed := NewRankingFeedHandler(service, logger)

	mux := chi.NewRouter()
	mux.Use(requestID)
	mux.Use(requestLogger(logger))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "pong!"})
	})

	// The websocket feed is long-lived, so it stays outside the request timeout.
	mux.Get("/api/quizzes/{code}/ranking/ws", feed.ServeWS)

	// Draft generation is bounded by ai.timeout inside the service instead.
	mux.With(requireAuthor(authn, logger)).Post("/api/generate-quiz-ai", api.GenerateDraft)

	mux.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(requestTimeout(cfg.RequestTimeout))
		}

		r.Get("/api/quizzes/{code}", api.GetQuiz)
		r.Post("/api/quizzes/{code}/submit", api.Submit)
		r.Get("/api/quizzes/{code}/ranking", api.Ranking)

		r.Group(func(r chi.Router) {
			r.Use(requireAuthor(authn, logger))
			r.Post("/api/quizzes", api.CreateQuiz)
			r.Get("/api/quizzes", api.ListQuizzes)
			r.Delete("/api/quizzes/{code}", api.DeleteQuiz)
		})
	})

	return mux
}

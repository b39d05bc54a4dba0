package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"quizrank-service/internal/config"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(Identity)

		r.Post("/quiz/start", h.StartQuiz)
		r.Post("/quiz/submit-answer", h.SubmitAnswer)
		r.Post("/quiz/finish", h.FinishQuiz)
		r.Get("/quiz/history", h.History)
		r.Get("/quiz/{id}/details", h.Details)

		r.Get("/leaderboard/personal", h.PersonalBest)
		r.Get("/leaderboard/stats", h.Stats)
		r.Get("/leaderboard/{mode}", h.Leaderboard)

		r.Get("/questions/random", h.RandomQuestions)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		config.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

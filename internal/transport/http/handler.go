package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"quizrank-service/internal/app"
	"quizrank-service/internal/config"
	"quizrank-service/internal/domain"
)

// Handler exposes the session tracker, leaderboard and question catalog as a JSON API.
type Handler struct {
	tracker      *app.Tracker
	leaderboards *app.LeaderboardService
	catalog      *app.CatalogService
	defaultLimit int
}

func NewHandler(tracker *app.Tracker, leaderboards *app.LeaderboardService, catalog *app.CatalogService, defaultLimit int) *Handler {
	return &Handler{
		tracker:      tracker,
		leaderboards: leaderboards,
		catalog:      catalog,
		defaultLimit: defaultLimit,
	}
}

type startRequest struct {
	Mode string `json:"mode"`
}

type submitRequest struct {
	SessionID    string `json:"quiz_record_id"`
	QuestionID   string `json:"question_id"`
	OptionID     string `json:"selected_option_id"`
	TimeTaken    int64  `json:"time_taken"`
	AttemptCount int    `json:"attempt_count"`
}

type finishRequest struct {
	SessionID string `json:"quiz_record_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.tracker.Open(r.Context(), userFrom(r.Context()), req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, map[string]interface{}{
		"quiz_record_id": session.ID,
		"mode":           session.Mode,
		"start_time":     session.StartTime,
	})
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.tracker.SubmitAnswer(r.Context(), userFrom(r.Context()).ID, app.SubmitInput{
		SessionID:   req.SessionID,
		QuestionID:  req.QuestionID,
		OptionID:    req.OptionID,
		TimeTakenMS: req.TimeTaken,
		AttemptHint: req.AttemptCount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, result)
}

func (h *Handler) FinishQuiz(w http.ResponseWriter, r *http.Request) {
	var req finishRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, r, domain.ErrMissingParameter)
		return
	}
	summary, err := h.tracker.Finish(r.Context(), userFrom(r.Context()).ID, req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, summary)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	history, err := h.tracker.History(r.Context(), userFrom(r.Context()).ID, r.URL.Query().Get("mode"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"total":   len(history),
	})
}

func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	details, err := h.tracker.Details(r.Context(), userFrom(r.Context()).ID, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, map[string]interface{}{
		"quiz_record_id": sessionID,
		"answers":        details,
	})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = h.defaultLimit
	}
	board, err := h.leaderboards.Leaderboard(r.Context(), chi.URLParam(r, "mode"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, board)
}

func (h *Handler) PersonalBest(w http.ResponseWriter, r *http.Request) {
	best, err := h.leaderboards.PersonalBest(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, best)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leaderboards.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, stats)
}

func (h *Handler) RandomQuestions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	var exclude []string
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		exclude = strings.Split(raw, ",")
	}
	questions, err := h.catalog.Random(r.Context(), r.URL.Query().Get("subject"), limit, exclude)
	if err != nil {
		writeError(w, r, err)
		return
	}
	config.JSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"total":     len(questions),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		config.WithContext(r.Context()).WithError(err).Debug("invalid request body")
		config.JSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		config.JSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return v, true
}

// writeError maps engine errors to status codes. Internal causes are logged
// and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrMissingParameter):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorizedSession):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrSessionAlreadyCompleted):
		status = http.StatusConflict
	}

	log := config.WithContext(r.Context())
	if status == http.StatusInternalServerError {
		var internal *domain.InternalError
		if errors.As(err, &internal) {
			log = log.WithField("op", internal.Op).WithError(internal.Err)
		} else {
			log = log.WithError(err)
		}
		log.Error("request failed")
		config.JSON(w, status, errorResponse{Error: domain.ErrInternal.Error()})
		return
	}
	log.WithError(err).Debug("request rejected")
	config.JSON(w, status, errorResponse{Error: err.Error()})
}

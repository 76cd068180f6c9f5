package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// APIHandler serves the REST surface of the quiz service.
type APIHandler struct {
	service *app.QuizService
	logger  *slog.Logger
}

func NewAPIHandler(service *app.QuizService, logger *slog.Logger) *APIHandler {
	return &APIHandler{service: service, logger: logger}
}

type submitRequest struct {
	PlayerName string          `json:"player_name"`
	Answers    []domain.Answer `json:"answers"`
}

type submitResponse struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"total_questions"`
}

type draftRequest struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var draft domain.NewQuiz
	if !h.decode(w, r, &draft, domain.ErrInvalidQuiz) {
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.logger.Info("quiz authored", "author", authorFrom(r.Context()), "code", quiz.ShareCode)
	writeJSON(w, http.StatusCreated, quiz.Summary())
}

func (h *APIHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *APIHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req, domain.ErrMalformedSubmission) {
		return
	}
	result, err := h.service.Submit(r.Context(), chi.URLParam(r, "code"), req.PlayerName, req.Answers)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Score: result.Score, TotalQuestions: result.TotalQuestions})
}

func (h *APIHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Ranking(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuiz(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !h.decode(w, r, &req, domain.ErrInvalidDraftRequest) {
		return
	}
	draft, err := h.service.GenerateDraft(r.Context(), req.Topic, req.NumQuestions)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// decode reads a size-capped JSON body. On failure it answers 400 with kind as the
// error prefix and reports false.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any, kind error) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if err == nil {
		return true
	}

	msg := kind.Error() + ": invalid JSON body"
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	case errors.Is(err, io.EOF):
		msg = kind.Error() + ": request body is empty"
	}
	writeError(w, http.StatusBadRequest, msg)
	return false
}

func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", RequestIDFrom(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "request failed"
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrMalformedSubmission),
		errors.Is(err, domain.ErrInvalidDraftRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrProviderFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrExhaustedRetries):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"chapter-quiz-service/internal/domain"
)

type errorBody struct {
	Error      string            `json:"error"`
	MessageKey string            `json:"messageKey"`
	Question   int               `json:"question,omitempty"`
	Values     map[string]string `json:"values,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the error taxonomy onto status codes. values echoes
// form input back to the client where a form should be shown again.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, values map[string]string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		body := errorBody{
			Error:      verr.Error(),
			MessageKey: verr.MessageKey(),
			Values:     map[string]string{"title": verr.Title, "description": verr.Description},
		}
		if verr.Kind == domain.ValidationInvalidQuestion {
			body.Question = verr.Index + 1
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", MessageKey: domain.MessageNotFound})
	case errors.Is(err, domain.ErrMissingCredentials):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), MessageKey: domain.MessageLoginRequired, Values: values})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid user id or password", MessageKey: domain.MessageLoginInvalid, Values: values})
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", MessageKey: domain.MessageInternal})
	}
}

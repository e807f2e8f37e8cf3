package handler

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/comigor/meditranslate-go/internal/errs"
	"github.com/comigor/meditranslate-go/internal/gateway"
	"github.com/comigor/meditranslate-go/internal/history"
	"github.com/comigor/meditranslate-go/internal/lang"
	"github.com/comigor/meditranslate-go/internal/logger"
	"github.com/comigor/meditranslate-go/internal/session"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

// respondFailure maps an error from the session layer to a status code.
func respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	if kind, ok := gateway.KindOf(err); ok {
		status := http.StatusBadGateway
		if kind == gateway.KindRateLimited {
			status = http.StatusTooManyRequests
		}
		respondJSON(w, status, errorBody{Error: gateway.UserMessage(err), Kind: kind.String()})
		return
	}

	switch {
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrDuplicateAudio):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrEmptyAudio),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, history.ErrInvalidRole),
		errors.Is(err, lang.ErrUnsupported):
		respondError(w, http.StatusBadRequest, err.Error())
	case errs.IsStorage(err):
		logger.FromContext(r.Context()).Error("storage failure", "error", err)
		respondError(w, http.StatusInternalServerError, "storage unavailable")
	default:
		logger.FromContext(r.Context()).Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

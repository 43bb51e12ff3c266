package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/service"
)

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps typed errors to status codes. Unknown errors are 500.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		ve *appErrors.ValidationError
		se *appErrors.StateError
		nf *appErrors.ErrCampaignNotFound
		ge *appErrors.GenerationError
		pe *appErrors.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "validation failed",
			"violations": ve.Violations,
		})
	case errors.As(err, &se), errors.Is(err, appErrors.ErrGenerationInProgress):
		WriteJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.As(err, &nf), errors.Is(err, service.ErrStepNotFound):
		WriteJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, appErrors.ErrNoSteps):
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	case errors.As(err, &ge):
		WriteJSON(w, http.StatusBadGateway, map[string]any{"error": ge.Message})
	case errors.As(err, &pe):
		log.Error("persistence failure", zap.String("stage", string(pe.Stage)), zap.Error(err))
		WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"error":      err.Error(),
			"stage":      pe.Stage,
			"steps_lost": pe.StepsLost,
		})
	default:
		log.Error("request failed", zap.Error(err))
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

// BadRequest reports a malformed body or parameter.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
}

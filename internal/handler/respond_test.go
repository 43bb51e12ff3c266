package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/service"
)

func TestWriteErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", appErrors.NewValidationError([]string{"Campaign name is required"}), http.StatusUnprocessableEntity},
		{"state", appErrors.NewStateError("add a step", "setup"), http.StatusConflict},
		{"in progress", appErrors.ErrGenerationInProgress, http.StatusConflict},
		{"campaign not found", appErrors.NewCampaignNotFound(4), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", appErrors.NewCampaignNotFound(4)), http.StatusNotFound},
		{"step not found", service.ErrStepNotFound, http.StatusNotFound},
		{"no steps", appErrors.ErrNoSteps, http.StatusUnprocessableEntity},
		{"generation", appErrors.NewGenerationError(errors.New("timeout")), http.StatusBadGateway},
		{"persistence", &appErrors.PersistenceError{Stage: appErrors.StageInsertSteps, Err: errors.New("boom")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, zap.NewNop(), tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestWriteErrorBodies(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, zap.NewNop(), appErrors.NewGenerationError(errors.New("upstream 500")))
	var gen map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
	assert.Equal(t, appErrors.GenerationFailedMessage, gen["error"])

	w = httptest.NewRecorder()
	WriteError(w, zap.NewNop(), &appErrors.PersistenceError{
		Stage: appErrors.StageInsertSteps, CampaignID: 7, StepsLost: true, Err: errors.New("disk full"),
	})
	var pe map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pe))
	assert.Equal(t, "insert_steps", pe["stage"])
	assert.Equal(t, true, pe["steps_lost"])

	w = httptest.NewRecorder()
	WriteError(w, zap.NewNop(), appErrors.NewValidationError([]string{"a", "b"}))
	var ve struct {
		Violations []string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ve))
	assert.Equal(t, []string{"a", "b"}, ve.Violations)
}

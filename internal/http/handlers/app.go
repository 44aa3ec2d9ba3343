// Package handlers is the thin caller layer in front of the orchestrator:
// JSON in, JSON out, error kinds mapped to HTTP status codes. No generation
// logic lives here.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/orchestrator"
)

// App carries handler dependencies.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Logger       *infra.Logger
}

// NewApp constructs the handler container.
func NewApp(orc *orchestrator.Orchestrator, logger *infra.Logger) *App {
	return &App{Orchestrator: orc, Logger: logger}
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func (a *App) json(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: encode response")
	}
}

func (a *App) error(w http.ResponseWriter, err error) {
	status, kind := statusForError(err)
	a.json(w, status, errorBody{
		Error:     err.Error(),
		Kind:      kind,
		Retryable: domain.Retryable(err),
	})
}

// statusForError maps the taxonomy onto HTTP status codes. 499 mirrors the
// common client-closed-request convention for cancellations.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrConfig):
		return http.StatusInternalServerError, "config"
	case errors.Is(err, domain.ErrAuth):
		return http.StatusBadGateway, "auth"
	case errors.Is(err, domain.ErrProtocol):
		return http.StatusBadGateway, "protocol"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrCancelled):
		return 499, "cancelled"
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, "generation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

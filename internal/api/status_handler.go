package api

import (
	"net/http"

	"github.com/phrazzld/eventhost/internal/api/shared"
	"github.com/phrazzld/eventhost/internal/hosted"
	"github.com/phrazzld/eventhost/internal/redact"
)

// RunnerInspector exposes the hosted runner's state.
type RunnerInspector interface {
	Name() string
	State() hosted.State
	Done() <-chan struct{}
	Err() error
}

// StatusHandler reports service health and runner state.
type StatusHandler struct {
	runner RunnerInspector
	stats  StatsProvider
}

// NewStatusHandler creates a new StatusHandler with the given dependencies.
func NewStatusHandler(runner RunnerInspector, stats StatsProvider) *StatusHandler {
	return &StatusHandler{runner: runner, stats: stats}
}

// Status handles GET /api/status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Runner: RunnerStatus{
			Name:  h.runner.Name(),
			State: h.runner.State().String(),
		},
		Bus: h.stats.Stats(),
	}
	select {
	case <-h.runner.Done():
		resp.Runner.Exited = true
	default:
	}
	if err := h.runner.Err(); err != nil {
		resp.Runner.Error = redact.Error(err)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Health handles GET /health. It answers 200 while the hosted operation is
// running and 503 once it has been stopped or has exited on its own.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.runner.State().String()
	status := http.StatusOK
	if h.runner.State() != hosted.StateRunning {
		status = http.StatusServiceUnavailable
	} else {
		select {
		case <-h.runner.Done():
			status = http.StatusServiceUnavailable
			state = "exited"
		default:
		}
	}
	shared.RespondWithJSON(w, r, status, map[string]string{
		"status": state,
	})
}

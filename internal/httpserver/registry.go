package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mydotey/artemis/internal/telemetry"
	"github.com/mydotey/artemis/pkg/model"
	"github.com/mydotey/artemis/pkg/registry"
)

// RegistryHandler serves the /api/registry endpoints. Registrations are
// accepted even while the node is still syncing from its peers, so clients
// restarting into a cold cluster never get bounced.
type RegistryHandler struct {
	logger *slog.Logger
	svc    *registry.Service
}

// NewRegistryHandler creates a RegistryHandler.
func NewRegistryHandler(logger *slog.Logger, svc *registry.Service) *RegistryHandler {
	return &RegistryHandler{logger: logger, svc: svc}
}

// Routes returns a chi.Router with the registry routes mounted.
func (h *RegistryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.handleRegister)
	r.Post("/heartbeat", h.handleHeartbeat)
	r.Post("/unregister", h.handleUnregister)
	return r
}

// statusCode maps a wire ErrorCode to its HTTP status.
func statusCode(code model.ErrorCode) int {
	switch code {
	case model.Success:
		return http.StatusOK
	case model.BadRequest:
		return http.StatusBadRequest
	case model.RateLimited:
		return http.StatusTooManyRequests
	case model.ServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *RegistryHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.RegisterResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}

	resp := h.svc.Register(&req)
	outcome := "success"
	if resp.Status.ErrorCode != model.Success {
		outcome = string(resp.Status.ErrorCode)
	} else if len(resp.FailedInstances) > 0 {
		outcome = "partial"
	}
	telemetry.RegisterTotal.WithLabelValues(outcome).Inc()
	Respond(w, statusCode(resp.Status.ErrorCode), resp)
}

func (h *RegistryHandler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req model.HeartbeatRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.HeartbeatResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}

	resp := h.svc.Heartbeat(&req)
	outcome := "success"
	if resp.Status.ErrorCode != model.Success {
		outcome = string(resp.Status.ErrorCode)
	} else if len(resp.FailedInstanceKeys) > 0 {
		outcome = "partial"
	}
	telemetry.HeartbeatTotal.WithLabelValues(outcome).Inc()
	Respond(w, statusCode(resp.Status.ErrorCode), resp)
}

func (h *RegistryHandler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req model.UnregisterRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.UnregisterResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}

	resp := h.svc.Unregister(&req)
	telemetry.UnregisterTotal.Inc()
	Respond(w, statusCode(resp.Status.ErrorCode), resp)
}

package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mydotey/artemis/internal/telemetry"
	"github.com/mydotey/artemis/pkg/discovery"
	"github.com/mydotey/artemis/pkg/model"
)

// DiscoveryHandler serves the /api/discovery endpoints. Until the node's
// initial peer sync completes, every discovery query is refused with
// service-unavailable; registrations keep flowing through the registry
// handler during that window.
type DiscoveryHandler struct {
	logger *slog.Logger
	svc    *discovery.Service
	ready  func() bool
}

// NewDiscoveryHandler creates a DiscoveryHandler. ready gates queries on
// the startup sync; pass a func returning true when clustering is off.
func NewDiscoveryHandler(logger *slog.Logger, svc *discovery.Service, ready func() bool) *DiscoveryHandler {
	return &DiscoveryHandler{logger: logger, svc: svc, ready: ready}
}

// Routes returns a chi.Router with the discovery routes mounted.
func (h *DiscoveryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/service", h.handleGetService)
	r.Get("/services", h.handleGetServices)
	r.Post("/services/delta", h.handleGetServicesDelta)
	return r
}

func (h *DiscoveryHandler) notReady(w http.ResponseWriter) bool {
	if h.ready() {
		return false
	}
	Respond(w, http.StatusServiceUnavailable, model.GetServiceResponse{
		Status: model.ResponseStatus{ErrorCode: model.ServiceUnavailable, ErrorMessage: "initial peer sync not complete"},
	})
	return true
}

func (h *DiscoveryHandler) handleGetService(w http.ResponseWriter, r *http.Request) {
	if h.notReady(w) {
		return
	}

	var req model.GetServiceRequest
	if err := Decode(r, &req); err != nil || req.DiscoveryConfig.ServiceID == "" {
		Respond(w, http.StatusBadRequest, model.GetServiceResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: "discovery_config.service_id is required"},
		})
		return
	}

	telemetry.DiscoveryQueriesTotal.WithLabelValues("service").Inc()
	svc := h.svc.GetService(&req.DiscoveryConfig)
	Respond(w, http.StatusOK, model.GetServiceResponse{Status: model.OK(), Service: svc})
}

func (h *DiscoveryHandler) handleGetServices(w http.ResponseWriter, r *http.Request) {
	if h.notReady(w) {
		return
	}

	telemetry.DiscoveryQueriesTotal.WithLabelValues("services").Inc()
	Respond(w, http.StatusOK, model.GetServicesResponse{Status: model.OK(), Services: h.svc.GetServices()})
}

func (h *DiscoveryHandler) handleGetServicesDelta(w http.ResponseWriter, r *http.Request) {
	if h.notReady(w) {
		return
	}

	var req model.GetServicesDeltaRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.GetServicesDeltaResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}

	telemetry.DiscoveryQueriesTotal.WithLabelValues("delta").Inc()
	services, currentTs := h.svc.GetServicesDelta(req.SinceTsMs)
	Respond(w, http.StatusOK, model.GetServicesDeltaResponse{
		Status:      model.OK(),
		Services:    services,
		CurrentTsMs: currentTs,
	})
}

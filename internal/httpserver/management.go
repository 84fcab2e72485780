package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mydotey/artemis/pkg/auxiliary"
	"github.com/mydotey/artemis/pkg/cluster"
	"github.com/mydotey/artemis/pkg/model"
)

// ManagementHandler serves the /api/management CRUD surface over the
// auxiliary configuration managers, plus the cluster node listing. All
// reads hit the in-memory managers; writes go through them to the store.
type ManagementHandler struct {
	logger  *slog.Logger
	aux     *auxiliary.Managers
	cluster *cluster.Manager
}

// NewManagementHandler creates a ManagementHandler. aux may be nil when no
// database is configured; management writes then return service-unavailable.
func NewManagementHandler(logger *slog.Logger, aux *auxiliary.Managers, cl *cluster.Manager) *ManagementHandler {
	return &ManagementHandler{logger: logger, aux: aux, cluster: cl}
}

// Routes returns a chi.Router with the management routes mounted.
func (h *ManagementHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/canary/{service_id}", func(r chi.Router) {
		r.Get("/", h.handleGetCanary)
		r.Put("/", h.handlePutCanary)
		r.Delete("/", h.handleDeleteCanary)
	})
	r.Route("/route/{service_id}", func(r chi.Router) {
		r.Get("/", h.handleListRoutes)
		r.Route("/{rule_id}", func(r chi.Router) {
			r.Get("/", h.handleGetRoute)
			r.Put("/", h.handlePutRoute)
			r.Delete("/", h.handleDeleteRoute)
		})
	})
	r.Route("/zone-operation/{region_id}/{zone_id}", func(r chi.Router) {
		r.Get("/", h.handleGetZoneOp)
		r.Put("/", h.handlePutZoneOp)
		r.Delete("/", h.handleDeleteZoneOp)
	})
	r.Route("/instance-operation/{region_id}/{zone_id}/{service_id}/{instance_id}", func(r chi.Router) {
		r.Get("/", h.handleGetInstanceOp)
		r.Put("/", h.handlePutInstanceOp)
		r.Delete("/", h.handleDeleteInstanceOp)
	})
	r.Route("/server-operation/{region_id}/{ip}", func(r chi.Router) {
		r.Put("/", h.handlePutServerOp)
		r.Delete("/", h.handleDeleteServerOp)
	})
	return r
}

// ClusterRoutes returns the /api/cluster routes.
func (h *ManagementHandler) ClusterRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/nodes", h.handleListNodes)
	return r
}

func (h *ManagementHandler) unavailable(w http.ResponseWriter) bool {
	if h.aux != nil {
		return false
	}
	RespondError(w, http.StatusServiceUnavailable, "unavailable", "management persistence not configured")
	return true
}

func (h *ManagementHandler) writeErr(w http.ResponseWriter, op string, err error) {
	h.logger.Error("management write failed", "op", op, "error", err)
	RespondError(w, http.StatusInternalServerError, "internal-error", "persisting management record")
}

// --- canary ---

func (h *ManagementHandler) handleGetCanary(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	cc, ok := h.aux.Canary.Get(chi.URLParam(r, "service_id"))
	if !ok {
		RespondError(w, http.StatusNotFound, "not-found", "no canary config for service")
		return
	}
	Respond(w, http.StatusOK, cc)
}

func (h *ManagementHandler) handlePutCanary(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	var cc model.CanaryConfig
	if err := Decode(r, &cc); err != nil {
		RespondError(w, http.StatusBadRequest, "bad-request", err.Error())
		return
	}
	cc.ServiceID = chi.URLParam(r, "service_id")
	cc.UpdatedAt = time.Now()
	if err := h.aux.Canary.Put(r.Context(), cc); err != nil {
		h.writeErr(w, "put canary", err)
		return
	}
	Respond(w, http.StatusOK, cc)
}

func (h *ManagementHandler) handleDeleteCanary(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	if err := h.aux.Canary.Delete(r.Context(), chi.URLParam(r, "service_id")); err != nil {
		h.writeErr(w, "delete canary", err)
		return
	}
	Respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- route rules ---

func (h *ManagementHandler) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	Respond(w, http.StatusOK, h.aux.Route.List(chi.URLParam(r, "service_id")))
}

func (h *ManagementHandler) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	rule, ok := h.aux.Route.Get(chi.URLParam(r, "service_id"), chi.URLParam(r, "rule_id"))
	if !ok {
		RespondError(w, http.StatusNotFound, "not-found", "no such route rule")
		return
	}
	Respond(w, http.StatusOK, rule)
}

func (h *ManagementHandler) handlePutRoute(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	var rule model.RouteRule
	if err := Decode(r, &rule); err != nil {
		RespondError(w, http.StatusBadRequest, "bad-request", err.Error())
		return
	}
	rule.ServiceID = chi.URLParam(r, "service_id")
	rule.RuleID = chi.URLParam(r, "rule_id")
	rule.UpdatedAt = time.Now()
	if err := h.aux.Route.Put(r.Context(), rule); err != nil {
		h.writeErr(w, "put route", err)
		return
	}
	Respond(w, http.StatusOK, rule)
}

func (h *ManagementHandler) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	if err := h.aux.Route.Delete(r.Context(), chi.URLParam(r, "service_id"), chi.URLParam(r, "rule_id")); err != nil {
		h.writeErr(w, "delete route", err)
		return
	}
	Respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- zone operations ---

func (h *ManagementHandler) handleGetZoneOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	rec, ok := h.aux.Zone.Get(chi.URLParam(r, "region_id"), chi.URLParam(r, "zone_id"))
	if !ok {
		RespondError(w, http.StatusNotFound, "not-found", "no operation recorded for zone")
		return
	}
	Respond(w, http.StatusOK, rec)
}

func (h *ManagementHandler) handlePutZoneOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	var rec model.ZoneOperationRecord
	if err := Decode(r, &rec); err != nil {
		RespondError(w, http.StatusBadRequest, "bad-request", err.Error())
		return
	}
	rec.RegionID = chi.URLParam(r, "region_id")
	rec.ZoneID = chi.URLParam(r, "zone_id")
	rec.UpdatedAt = time.Now()
	if err := h.aux.Zone.Put(r.Context(), rec); err != nil {
		h.writeErr(w, "put zone operation", err)
		return
	}
	Respond(w, http.StatusOK, rec)
}

func (h *ManagementHandler) handleDeleteZoneOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	if err := h.aux.Zone.Delete(r.Context(), chi.URLParam(r, "region_id"), chi.URLParam(r, "zone_id")); err != nil {
		h.writeErr(w, "delete zone operation", err)
		return
	}
	Respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- instance / server operations ---

func instanceKeyFromURL(r *http.Request) model.InstanceKey {
	inst := model.Instance{
		RegionID:   chi.URLParam(r, "region_id"),
		ZoneID:     chi.URLParam(r, "zone_id"),
		ServiceID:  chi.URLParam(r, "service_id"),
		GroupID:    r.URL.Query().Get("group_id"),
		InstanceID: chi.URLParam(r, "instance_id"),
	}
	return inst.Key()
}

func (h *ManagementHandler) handleGetInstanceOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	rec, ok := h.aux.Instance.GetInstanceOp(instanceKeyFromURL(r))
	if !ok {
		RespondError(w, http.StatusNotFound, "not-found", "no operation recorded for instance")
		return
	}
	Respond(w, http.StatusOK, rec)
}

func (h *ManagementHandler) handlePutInstanceOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	var rec model.InstanceOperationRecord
	if err := Decode(r, &rec); err != nil {
		RespondError(w, http.StatusBadRequest, "bad-request", err.Error())
		return
	}
	rec.Key = instanceKeyFromURL(r)
	rec.UpdatedAt = time.Now()
	if err := h.aux.Instance.PutInstanceOp(r.Context(), rec); err != nil {
		h.writeErr(w, "put instance operation", err)
		return
	}
	Respond(w, http.StatusOK, rec)
}

func (h *ManagementHandler) handleDeleteInstanceOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	if err := h.aux.Instance.DeleteInstanceOp(r.Context(), instanceKeyFromURL(r)); err != nil {
		h.writeErr(w, "delete instance operation", err)
		return
	}
	Respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ManagementHandler) handlePutServerOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	var rec model.ServerOperationRecord
	if err := Decode(r, &rec); err != nil {
		RespondError(w, http.StatusBadRequest, "bad-request", err.Error())
		return
	}
	rec.RegionID = chi.URLParam(r, "region_id")
	rec.IP = chi.URLParam(r, "ip")
	rec.UpdatedAt = time.Now()
	if err := h.aux.Instance.PutServerOp(r.Context(), rec); err != nil {
		h.writeErr(w, "put server operation", err)
		return
	}
	Respond(w, http.StatusOK, rec)
}

func (h *ManagementHandler) handleDeleteServerOp(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	if err := h.aux.Instance.DeleteServerOp(r.Context(), chi.URLParam(r, "region_id"), chi.URLParam(r, "ip")); err != nil {
		h.writeErr(w, "delete server operation", err)
		return
	}
	Respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- cluster ---

func (h *ManagementHandler) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	if h.cluster == nil {
		Respond(w, http.StatusOK, []*model.ClusterNode{})
		return
	}
	Respond(w, http.StatusOK, h.cluster.ListNodes())
}

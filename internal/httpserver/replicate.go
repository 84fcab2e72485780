package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mydotey/artemis/pkg/cluster"
	"github.com/mydotey/artemis/pkg/model"
	"github.com/mydotey/artemis/pkg/registry"
)

// ReplicateHandler serves the /replicate endpoints peers call on each
// other: incremental mutation replication (single and batched), full-table
// reads for bootstrap, and cache-backed deltas for warm restart.
type ReplicateHandler struct {
	logger  *slog.Logger
	nodeID  string
	svc     *registry.Service
	cluster *cluster.Manager
}

// NewReplicateHandler creates a ReplicateHandler. cluster may be nil in
// single-node mode; peer heartbeat tracking is then skipped.
func NewReplicateHandler(logger *slog.Logger, nodeID string, svc *registry.Service, cl *cluster.Manager) *ReplicateHandler {
	return &ReplicateHandler{logger: logger, nodeID: nodeID, svc: svc, cluster: cl}
}

// Routes returns a chi.Router with the replication routes mounted.
func (h *ReplicateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.handleRegister)
	r.Post("/heartbeat", h.handleHeartbeat)
	r.Post("/unregister", h.handleUnregister)
	r.Post("/batch/{kind}", h.handleBatch)
	r.Get("/services", h.handleServices)
	r.Post("/sync-full-data", h.handleSyncFullData)
	r.Post("/delta", h.handleDelta)
	return r
}

// accept applies the self-replication guard and records the sending peer as
// alive. Events this node originated are acknowledged but not re-applied.
func (h *ReplicateHandler) accept(originNodeID string) bool {
	if originNodeID == h.nodeID {
		return false
	}
	if h.cluster != nil && originNodeID != "" {
		h.cluster.UpdateHeartbeat(originNodeID)
	}
	return true
}

func (h *ReplicateHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.ReplicateRegisterRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.ReplicateRegisterResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}
	if h.accept(req.OriginNodeID) {
		h.svc.ApplyReplicatedRegister(req.Instances)
	}
	Respond(w, http.StatusOK, model.ReplicateRegisterResponse{Status: model.OK()})
}

func (h *ReplicateHandler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req model.ReplicateHeartbeatRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.ReplicateHeartbeatResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}
	if h.accept(req.OriginNodeID) {
		h.svc.ApplyReplicatedHeartbeat(req.InstanceKeys)
	}
	Respond(w, http.StatusOK, model.ReplicateHeartbeatResponse{Status: model.OK()})
}

func (h *ReplicateHandler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req model.ReplicateUnregisterRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.ReplicateUnregisterResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}
	if h.accept(req.OriginNodeID) {
		h.svc.ApplyReplicatedUnregister(req.InstanceKeys)
	}
	Respond(w, http.StatusOK, model.ReplicateUnregisterResponse{Status: model.OK()})
}

func (h *ReplicateHandler) handleBatch(w http.ResponseWriter, r *http.Request) {
	kind := model.BatchKind(chi.URLParam(r, "kind"))

	var req model.BatchRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.BatchResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}

	if !h.accept(req.OriginNodeID) {
		Respond(w, http.StatusOK, model.BatchResponse{Status: model.OK()})
		return
	}

	switch kind {
	case model.BatchRegister:
		h.svc.ApplyReplicatedRegister(req.Instances)
	case model.BatchHeartbeat:
		h.svc.ApplyReplicatedHeartbeat(req.InstanceKeys)
	case model.BatchUnregister:
		h.svc.ApplyReplicatedUnregister(req.InstanceKeys)
	default:
		Respond(w, http.StatusBadRequest, model.BatchResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: "unknown batch kind: " + string(kind)},
		})
		return
	}
	Respond(w, http.StatusOK, model.BatchResponse{Status: model.OK()})
}

func (h *ReplicateHandler) handleServices(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, model.GetAllServicesResponse{
		Status:   model.OK(),
		Services: h.svc.Repo.SnapshotServices(),
	})
}

// handleSyncFullData hands a joining peer the full authoritative table so
// it can seed its repository and leases before serving discovery traffic.
func (h *ReplicateHandler) handleSyncFullData(w http.ResponseWriter, r *http.Request) {
	var req model.SyncFullDataRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.SyncFullDataResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}

	if h.cluster != nil && req.RequestingNodeID != "" {
		h.cluster.UpdateHeartbeat(req.RequestingNodeID)
	}

	h.logger.Info("serving full sync", "requesting_node", req.RequestingNodeID)
	Respond(w, http.StatusOK, model.SyncFullDataResponse{
		Status:      model.OK(),
		Services:    h.svc.Repo.SnapshotServices(),
		CurrentTsMs: time.Now().UnixMilli(),
	})
}

func (h *ReplicateHandler) handleDelta(w http.ResponseWriter, r *http.Request) {
	var req model.ServicesDeltaRequest
	if err := Decode(r, &req); err != nil {
		Respond(w, http.StatusBadRequest, model.ServicesDeltaResponse{
			Status: model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: err.Error()},
		})
		return
	}

	services, currentTs := h.svc.Cache.DeltaSince(req.SinceTimestampMs)
	Respond(w, http.StatusOK, model.ServicesDeltaResponse{
		Status:      model.OK(),
		Services:    services,
		CurrentTsMs: currentTs,
	})
}

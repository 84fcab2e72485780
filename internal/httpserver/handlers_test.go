package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mydotey/artemis/internal/telemetry"
	"github.com/mydotey/artemis/pkg/discovery"
	"github.com/mydotey/artemis/pkg/model"
	"github.com/mydotey/artemis/pkg/registry"
)

type testEnv struct {
	srv *Server
	reg *registry.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := registry.NewRepository()
	leases := registry.NewLeaseManager(time.Minute)
	cache := registry.NewCache()
	changes := registry.NewChangeManager()
	limiter := registry.NewRateLimiter(1000)
	reg := registry.NewService(repo, leases, cache, changes, limiter, nil)

	chain := discovery.NewChain(discovery.NewStatusFilter(model.StatusUp))
	disc := discovery.NewService(cache, repo, chain)

	srv := NewServer([]string{"*"}, logger, telemetry.NewMetricsRegistry())
	srv.Router.Mount("/api/registry", NewRegistryHandler(logger, reg).Routes())
	srv.Router.Mount("/api/discovery", NewDiscoveryHandler(logger, disc, srv.Ready).Routes())
	srv.Router.Mount("/replicate", NewReplicateHandler(logger, "local-node", reg, nil).Routes())

	return &testEnv{srv: srv, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func wireInstance(service, instance, ip string) *model.Instance {
	return &model.Instance{
		RegionID:   "r1",
		ZoneID:     "z1",
		ServiceID:  service,
		InstanceID: instance,
		IP:         ip,
		Port:       8080,
		URL:        "http://" + ip + ":8080",
		Status:     model.StatusUp,
	}
}

func TestRegisterThenDiscover(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetReady()

	rec := env.do(t, http.MethodPost, "/api/registry/register", model.RegisterRequest{
		Instances: []*model.Instance{wireInstance("orders", "i1", "10.0.0.1")},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeInto[model.RegisterResponse](t, rec)
	if resp.Status.ErrorCode != model.Success {
		t.Fatalf("register: expected success, got %+v", resp.Status)
	}

	rec = env.do(t, http.MethodPost, "/api/discovery/service", model.GetServiceRequest{
		DiscoveryConfig: model.DiscoveryConfig{ServiceID: "orders", RegionID: "r1", ZoneID: "z1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("discover: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	svcResp := decodeInto[model.GetServiceResponse](t, rec)
	if svcResp.Service == nil || len(svcResp.Service.Instances) != 1 {
		t.Fatalf("expected one discovered instance, got %+v", svcResp.Service)
	}
	if svcResp.Service.Instances[0].InstanceID != "i1" {
		t.Fatalf("expected i1, got %s", svcResp.Service.Instances[0].InstanceID)
	}
}

func TestRegisterAllInvalidReturns400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/registry/register", model.RegisterRequest{
		Instances: []*model.Instance{{ServiceID: "orders"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeInto[model.RegisterResponse](t, rec)
	if resp.Status.ErrorCode != model.BadRequest {
		t.Fatalf("expected bad-request, got %+v", resp.Status)
	}
}

func TestHeartbeatUnknownKeyReportsFailure(t *testing.T) {
	env := newTestEnv(t)

	key := wireInstance("orders", "ghost", "10.0.0.9").Key()
	rec := env.do(t, http.MethodPost, "/api/registry/heartbeat", model.HeartbeatRequest{
		InstanceKeys: []model.InstanceKey{key},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with partial failure, got %d", rec.Code)
	}
	resp := decodeInto[model.HeartbeatResponse](t, rec)
	if len(resp.FailedInstanceKeys) != 1 {
		t.Fatalf("expected the unknown key reported back, got %+v", resp.FailedInstanceKeys)
	}
}

func TestUnregisterRemovesFromDiscovery(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetReady()

	inst := wireInstance("orders", "i1", "10.0.0.1")
	env.do(t, http.MethodPost, "/api/registry/register", model.RegisterRequest{Instances: []*model.Instance{inst}})

	rec := env.do(t, http.MethodPost, "/api/registry/unregister", model.UnregisterRequest{
		InstanceKeys: []model.InstanceKey{inst.Key()},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("unregister: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/discovery/service", model.GetServiceRequest{
		DiscoveryConfig: model.DiscoveryConfig{ServiceID: "orders"},
	})
	svcResp := decodeInto[model.GetServiceResponse](t, rec)
	if svcResp.Service != nil && len(svcResp.Service.Instances) != 0 {
		t.Fatalf("expected no instances after unregister, got %+v", svcResp.Service.Instances)
	}
}

func TestDiscoveryRefusedUntilReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/discovery/service", model.GetServiceRequest{
		DiscoveryConfig: model.DiscoveryConfig{ServiceID: "orders"},
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", rec.Code)
	}

	// Registrations are still accepted during the sync window.
	rec = env.do(t, http.MethodPost, "/api/registry/register", model.RegisterRequest{
		Instances: []*model.Instance{wireInstance("orders", "i1", "10.0.0.1")},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected register to succeed before ready, got %d", rec.Code)
	}

	env.srv.SetReady()
	rec = env.do(t, http.MethodPost, "/api/discovery/service", model.GetServiceRequest{
		DiscoveryConfig: model.DiscoveryConfig{ServiceID: "orders"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after ready, got %d", rec.Code)
	}
}

func TestReplicateBatchAppliesPeerMutations(t *testing.T) {
	env := newTestEnv(t)

	inst := wireInstance("orders", "i1", "10.0.0.1")
	rec := env.do(t, http.MethodPost, "/replicate/batch/register", model.BatchRequest{
		OriginNodeID: "peer-node",
		Instances:    []*model.Instance{inst},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, ok := env.reg.Repo.Get(inst.Key()); !ok {
		t.Fatalf("expected replicated instance in the repository")
	}
	if !env.reg.Leases.IsValid(inst.Key()) {
		t.Fatalf("expected a lease for the replicated instance")
	}
}

func TestReplicateBatchIgnoresOwnOrigin(t *testing.T) {
	env := newTestEnv(t)

	inst := wireInstance("orders", "i1", "10.0.0.1")
	rec := env.do(t, http.MethodPost, "/replicate/batch/register", model.BatchRequest{
		OriginNodeID: "local-node",
		Instances:    []*model.Instance{inst},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}

	if _, ok := env.reg.Repo.Get(inst.Key()); ok {
		t.Fatalf("self-originated event must not be re-applied")
	}
}

func TestReplicateBatchUnknownKindReturns400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/replicate/batch/bogus", model.BatchRequest{OriginNodeID: "peer-node"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown batch kind, got %d", rec.Code)
	}
}

func TestSyncFullDataReturnsSnapshot(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/registry/register", model.RegisterRequest{
		Instances: []*model.Instance{
			wireInstance("orders", "i1", "10.0.0.1"),
			wireInstance("billing", "i2", "10.0.0.2"),
		},
	})

	rec := env.do(t, http.MethodPost, "/replicate/sync-full-data", model.SyncFullDataRequest{RequestingNodeID: "peer-node"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeInto[model.SyncFullDataResponse](t, rec)
	if len(resp.Services) != 2 {
		t.Fatalf("expected 2 services in full sync, got %d", len(resp.Services))
	}
	if resp.CurrentTsMs == 0 {
		t.Fatalf("expected a current timestamp")
	}
}

func TestReplicateDeltaReturnsRecentServices(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetReady()

	env.do(t, http.MethodPost, "/api/registry/register", model.RegisterRequest{
		Instances: []*model.Instance{wireInstance("orders", "i1", "10.0.0.1")},
	})
	// Populate the cache entry the delta reads from.
	env.do(t, http.MethodPost, "/api/discovery/service", model.GetServiceRequest{
		DiscoveryConfig: model.DiscoveryConfig{ServiceID: "orders"},
	})

	rec := env.do(t, http.MethodPost, "/replicate/delta", model.ServicesDeltaRequest{SinceTimestampMs: 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeInto[model.ServicesDeltaResponse](t, rec)
	if len(resp.Services) != 1 {
		t.Fatalf("expected the orders snapshot in the delta, got %d services", len(resp.Services))
	}

	rec = env.do(t, http.MethodPost, "/replicate/delta", model.ServicesDeltaRequest{SinceTimestampMs: resp.CurrentTsMs + 1})
	resp = decodeInto[model.ServicesDeltaResponse](t, rec)
	if len(resp.Services) != 0 {
		t.Fatalf("expected empty delta after current timestamp, got %d services", len(resp.Services))
	}
}

func TestHealthzAndReadyz(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before sync: expected 503, got %d", rec.Code)
	}

	env.srv.SetReady()
	if rec := env.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz after sync: expected 200, got %d", rec.Code)
	}
}

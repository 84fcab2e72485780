package auxiliary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mydotey/artemis/pkg/model"
)

// snapshotPayload is the JSON shape of one node's auxiliary config snapshot
// as stored in Redis.
type snapshotPayload struct {
	Canary       []model.CanaryConfig            `json:"canary"`
	Routes       []model.RouteRule               `json:"routes"`
	Zones        []model.ZoneOperationRecord     `json:"zones"`
	Instances    []model.InstanceOperationRecord `json:"instances"`
	Servers      []model.ServerOperationRecord   `json:"servers"`
	CapturedAtMs int64                           `json:"captured_at_ms"`
}

// SnapshotCache persists a JSON snapshot of the loaded auxiliary
// configuration in Redis so a restarting node can warm its managers before
// its own database load completes. The database remains authoritative: a
// successful Reload always overwrites whatever Warm seeded.
type SnapshotCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache. Snapshots expire after 24h so a
// long-dead cluster never warms from stale management state.
func NewSnapshotCache(rdb *redis.Client) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, key: "artemis:auxiliary:snapshot", ttl: 24 * time.Hour}
}

// Save captures the managers' current in-memory state into Redis.
func (c *SnapshotCache) Save(ctx context.Context, m *Managers) error {
	payload := snapshotPayload{
		Canary:       m.Canary.records(),
		Routes:       m.Route.records(),
		Zones:        m.Zone.records(),
		CapturedAtMs: time.Now().UnixMilli(),
	}
	payload.Instances, payload.Servers = m.Instance.records()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling auxiliary snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("storing auxiliary snapshot: %w", err)
	}
	return nil
}

// Warm seeds the managers from the last stored snapshot. A missing snapshot
// is not an error; the managers just stay empty until the database load.
func (c *SnapshotCache) Warm(ctx context.Context, m *Managers) error {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading auxiliary snapshot: %w", err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing auxiliary snapshot: %w", err)
	}

	m.Canary.seed(payload.Canary)
	m.Route.seed(payload.Routes)
	m.Zone.seed(payload.Zones)
	m.Instance.seed(payload.Instances, payload.Servers)
	return nil
}

// records/seed export and replace each manager's in-memory state without
// touching the store; used only by the snapshot cache.

func (m *CanaryManager) records() []model.CanaryConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.CanaryConfig, 0, len(m.configs))
	for _, c := range m.configs {
		out = append(out, c)
	}
	return out
}

func (m *CanaryManager) seed(configs []model.CanaryConfig) {
	next := make(map[string]model.CanaryConfig, len(configs))
	for _, c := range configs {
		next[c.ServiceID] = c
	}
	m.mu.Lock()
	m.configs = next
	m.mu.Unlock()
}

func (m *RouteManager) records() []model.RouteRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.RouteRule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out
}

func (m *RouteManager) seed(rules []model.RouteRule) {
	next := make(map[routeKey]model.RouteRule, len(rules))
	for _, r := range rules {
		next[routeKey{r.ServiceID, r.RuleID}] = r
	}
	m.mu.Lock()
	m.rules = next
	m.mu.Unlock()
}

func (m *ZoneOperationManager) records() []model.ZoneOperationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ZoneOperationRecord, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	return out
}

func (m *ZoneOperationManager) seed(recs []model.ZoneOperationRecord) {
	next := make(map[zoneKey]model.ZoneOperationRecord, len(recs))
	for _, r := range recs {
		next[zoneKey{r.RegionID, r.ZoneID}] = r
	}
	m.mu.Lock()
	m.recs = next
	m.mu.Unlock()
}

func (m *InstanceOperationManager) records() ([]model.InstanceOperationRecord, []model.ServerOperationRecord) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	insts := make([]model.InstanceOperationRecord, 0, len(m.instances))
	for _, r := range m.instances {
		insts = append(insts, r)
	}
	srvs := make([]model.ServerOperationRecord, 0, len(m.servers))
	for _, r := range m.servers {
		srvs = append(srvs, r)
	}
	return insts, srvs
}

func (m *InstanceOperationManager) seed(insts []model.InstanceOperationRecord, srvs []model.ServerOperationRecord) {
	nextInst := make(map[model.InstanceKey]model.InstanceOperationRecord, len(insts))
	for _, r := range insts {
		nextInst[r.Key] = r
	}
	nextSrv := make(map[serverKey]model.ServerOperationRecord, len(srvs))
	for _, r := range srvs {
		nextSrv[serverKey{r.RegionID, r.IP}] = r
	}
	m.mu.Lock()
	m.instances = nextInst
	m.servers = nextSrv
	m.mu.Unlock()
}

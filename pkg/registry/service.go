package registry

import (
	"github.com/mydotey/artemis/pkg/model"
)

// Replicator is the subset of the replication manager the registry service
// depends on. Accepting an interface here keeps pkg/registry independent of
// pkg/replication's HTTP/batching concerns.
type Replicator interface {
	EnqueueRegister(instances []*model.Instance)
	EnqueueHeartbeat(keys []model.InstanceKey)
	EnqueueUnregister(keys []model.InstanceKey)
}

// noopReplicator is used when replication is disabled (single-node mode).
type noopReplicator struct{}

func (noopReplicator) EnqueueRegister(_ []*model.Instance)     {}
func (noopReplicator) EnqueueHeartbeat(_ []model.InstanceKey)  {}
func (noopReplicator) EnqueueUnregister(_ []model.InstanceKey) {}

// Service orchestrates the repository, lease manager, cache, change
// manager, and rate limiter under a single register/heartbeat/unregister
// call: repository+lease updates happen-before cache
// invalidation happens-before change publication, for a given service_id.
type Service struct {
	Repo        *Repository
	Leases      *LeaseManager
	Cache       *Cache
	Changes     *ChangeManager
	RateLimiter *RateLimiter
	Replication Replicator
}

// NewService wires the five core components into one orchestrator. replicator
// may be nil, in which case replication enqueue calls are no-ops.
func NewService(repo *Repository, leases *LeaseManager, cache *Cache, changes *ChangeManager, limiter *RateLimiter, replicator Replicator) *Service {
	if replicator == nil {
		replicator = noopReplicator{}
	}
	return &Service{
		Repo:        repo,
		Leases:      leases,
		Cache:       cache,
		Changes:     changes,
		RateLimiter: limiter,
		Replication: replicator,
	}
}

// Register applies the request's instances in list order. Invalid instances
// are skipped and reported in FailedInstances; valid ones still take effect.
// If every instance is invalid, status is BadRequest.
func (s *Service) Register(req *model.RegisterRequest) *model.RegisterResponse {
	if !s.RateLimiter.Check() {
		return &model.RegisterResponse{Status: model.ResponseStatus{ErrorCode: model.RateLimited}}
	}

	resp := &model.RegisterResponse{Status: model.OK()}
	succeeded := 0
	for _, inst := range req.Instances {
		if reason := inst.Validate(); reason != "" {
			resp.FailedInstances = append(resp.FailedInstances, inst)
			continue
		}
		s.registerOne(inst)
		succeeded++
	}
	if succeeded == 0 && len(req.Instances) > 0 {
		resp.Status = model.ResponseStatus{ErrorCode: model.BadRequest, ErrorMessage: "all instances failed validation"}
	}
	return resp
}

func (s *Service) registerOne(inst *model.Instance) {
	inserted := s.Repo.Register(inst)
	key := inst.Key()
	s.Leases.CreateOrRenew(key)
	s.Cache.Invalidate(inst.ServiceID)
	s.Changes.PublishRegister(inst, inserted)
	s.Replication.EnqueueRegister([]*model.Instance{inst})
}

// Heartbeat renews the lease for each key in list order. Keys with no
// existing lease are reported in FailedInstanceKeys to signal the caller
// that a re-register is required; no cache invalidation occurs.
func (s *Service) Heartbeat(req *model.HeartbeatRequest) *model.HeartbeatResponse {
	if !s.RateLimiter.Check() {
		return &model.HeartbeatResponse{Status: model.ResponseStatus{ErrorCode: model.RateLimited}}
	}

	resp := &model.HeartbeatResponse{Status: model.OK()}
	var renewed []model.InstanceKey
	for _, key := range req.InstanceKeys {
		if s.Leases.Renew(key) {
			renewed = append(renewed, key)
			continue
		}
		resp.FailedInstanceKeys = append(resp.FailedInstanceKeys, key)
	}
	if len(renewed) > 0 {
		s.Replication.EnqueueHeartbeat(renewed)
	}
	return resp
}

// Unregister removes each key's lease and instance in list order, publishing
// a Delete event and invalidating the cache for any key that existed.
func (s *Service) Unregister(req *model.UnregisterRequest) *model.UnregisterResponse {
	if !s.RateLimiter.Check() {
		return &model.UnregisterResponse{Status: model.ResponseStatus{ErrorCode: model.RateLimited}}
	}

	var removed []model.InstanceKey
	for _, key := range req.InstanceKeys {
		s.Leases.Remove(key)
		inst, ok := s.Repo.Remove(key)
		if !ok {
			continue
		}
		s.Cache.Invalidate(inst.ServiceID)
		s.Changes.PublishUnregister(inst)
		removed = append(removed, key)
	}
	if len(removed) > 0 {
		s.Replication.EnqueueUnregister(removed)
	}
	return &model.UnregisterResponse{Status: model.OK()}
}

// ApplyReplicatedRegister applies instances received from a peer. Replicated
// mutations bypass the rate limiter and are not re-enqueued for replication;
// each node forwards only the mutations it originated.
func (s *Service) ApplyReplicatedRegister(instances []*model.Instance) {
	for _, inst := range instances {
		if inst == nil || inst.Validate() != "" {
			continue
		}
		inserted := s.Repo.Register(inst)
		s.Leases.CreateOrRenew(inst.Key())
		s.Cache.Invalidate(inst.ServiceID)
		s.Changes.PublishRegister(inst, inserted)
	}
}

// ApplyReplicatedHeartbeat renews leases for keys received from a peer.
// Keys with no local lease are returned; the /replicate handlers do not send
// them back to the origin, and recovery happens through the client's
// re-register.
func (s *Service) ApplyReplicatedHeartbeat(keys []model.InstanceKey) []model.InstanceKey {
	var failed []model.InstanceKey
	for _, key := range keys {
		if !s.Leases.Renew(key) {
			failed = append(failed, key)
		}
	}
	return failed
}

// ApplyReplicatedUnregister removes instances for keys received from a peer.
func (s *Service) ApplyReplicatedUnregister(keys []model.InstanceKey) {
	for _, key := range keys {
		s.Leases.Remove(key)
		inst, ok := s.Repo.Remove(key)
		if !ok {
			continue
		}
		s.Cache.Invalidate(inst.ServiceID)
		s.Changes.PublishUnregister(inst)
	}
}

// Evict removes an expired key from the repository, invalidates the cache,
// publishes a Delete event, and enqueues a replication unregister. It is
// invoked by the lease manager's eviction loop once per evicted key.
func (s *Service) Evict(key model.InstanceKey) {
	inst, ok := s.Repo.Remove(key)
	if !ok {
		return
	}
	s.Cache.Invalidate(inst.ServiceID)
	s.Changes.PublishUnregister(inst)
	s.Replication.EnqueueUnregister([]model.InstanceKey{key})
}

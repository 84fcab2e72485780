package discovery

import (
	"github.com/mydotey/artemis/pkg/model"
)

// CacheReader is the subset of the versioned cache the discovery service
// depends on, plus the rebuild path on cache miss.
type CacheReader interface {
	Get(serviceID string) (*model.VersionedSnapshot, bool)
	Put(serviceID string, instances []*model.Instance) *model.VersionedSnapshot
	DeltaSince(sinceTsMs int64) (services []*model.Service, currentTsMs int64)
	AllSnapshots() []*model.Service
}

// RepositoryReader is the read path into the authoritative instance table,
// used to rebuild a cache entry on miss.
type RepositoryReader interface {
	ListByService(serviceID string) []*model.Instance
}

// Service is the discovery read path: cache-backed retrieval followed by
// the filter chain, applied after retrieval so filter context never
// pollutes the shared cache.
type Service struct {
	Cache CacheReader
	Repo  RepositoryReader
	Chain *Chain
}

// NewService creates a discovery Service.
func NewService(cache CacheReader, repo RepositoryReader, chain *Chain) *Service {
	return &Service{Cache: cache, Repo: repo, Chain: chain}
}

// GetService builds or reads the cached snapshot for the requested
// service_id, runs the filter chain, and returns the resulting Service.
func (s *Service) GetService(cfg *model.DiscoveryConfig) *model.Service {
	snap, ok := s.Cache.Get(cfg.ServiceID)
	var instances []*model.Instance
	if ok {
		instances = snap.Instances
	} else {
		instances = s.Repo.ListByService(cfg.ServiceID)
		s.Cache.Put(cfg.ServiceID, instances)
	}

	svc := &model.Service{ServiceID: cfg.ServiceID, Instances: instances}
	return s.Chain.Apply(svc, cfg)
}

// GetServices returns an aggregated, unfiltered snapshot across all
// cached services.
func (s *Service) GetServices() []*model.Service {
	return s.Cache.AllSnapshots()
}

// GetServicesDelta returns every service snapshot mutated after sinceTsMs.
func (s *Service) GetServicesDelta(sinceTsMs int64) ([]*model.Service, int64) {
	return s.Cache.DeltaSince(sinceTsMs)
}

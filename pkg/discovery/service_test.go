package discovery

import (
	"testing"
	"time"

	"github.com/mydotey/artemis/pkg/registry"
)

func TestDeltaReturnsOnlyServicesMutatedAfter(t *testing.T) {
	repo := registry.NewRepository()
	cache := registry.NewCache()
	svc := NewService(cache, repo, NewChain(NewStatusFilter()))

	i1 := inst("A", "i1", "1.1.1.1", "", "up")
	repo.Register(i1)
	cache.Put("A", repo.ListByService("A"))
	_, t0 := cache.DeltaSince(0)

	time.Sleep(2 * time.Millisecond)
	i2 := inst("B", "i2", "2.2.2.2", "", "up")
	repo.Register(i2)
	cache.Put("B", repo.ListByService("B"))

	services, _ := svc.GetServicesDelta(t0)
	if len(services) != 1 || services[0].ServiceID != "B" {
		t.Fatalf("expected delta to contain only the service mutated after t0, got %+v", services)
	}
}

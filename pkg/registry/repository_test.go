package registry

import (
	"testing"

	"github.com/mydotey/artemis/pkg/model"
)

func testInstance(serviceID, instanceID, ip string) *model.Instance {
	return &model.Instance{
		RegionID:   "us-east",
		ZoneID:     "zone-a",
		ServiceID:  serviceID,
		InstanceID: instanceID,
		IP:         ip,
		Port:       80,
		URL:        "http://" + ip + ":80",
		Status:     model.StatusUp,
	}
}

func TestRepositoryRegisterIsUpsert(t *testing.T) {
	repo := NewRepository()
	inst := testInstance("A", "i1", "1.1.1.1")

	if inserted := repo.Register(inst); !inserted {
		t.Fatalf("expected first register to be an insert")
	}
	if inserted := repo.Register(inst); inserted {
		t.Fatalf("expected re-register of the same key to be an update")
	}

	got, ok := repo.Get(inst.Key())
	if !ok || got != inst {
		t.Fatalf("expected Get to return the registered instance")
	}
}

func TestRepositoryServiceIDCaseInsensitiveKey(t *testing.T) {
	repo := NewRepository()
	repo.Register(testInstance("Foo", "i1", "1.1.1.1"))
	repo.Register(testInstance("foo", "i1", "1.1.1.1"))

	insts := repo.ListByService("FOO")
	if len(insts) != 1 {
		t.Fatalf("expected exactly one instance for case-insensitive service_id, got %d", len(insts))
	}
}

func TestRepositoryRemove(t *testing.T) {
	repo := NewRepository()
	inst := testInstance("A", "i1", "1.1.1.1")
	repo.Register(inst)

	removed, ok := repo.Remove(inst.Key())
	if !ok || removed != inst {
		t.Fatalf("expected Remove to return the registered instance")
	}
	if _, ok := repo.Get(inst.Key()); ok {
		t.Fatalf("expected Get after Remove to report absent")
	}
	if _, ok := repo.Remove(inst.Key()); ok {
		t.Fatalf("expected second Remove to report absent")
	}
}

func TestRepositorySnapshotServicesGroupsByServiceID(t *testing.T) {
	repo := NewRepository()
	repo.Register(testInstance("A", "i1", "1.1.1.1"))
	repo.Register(testInstance("A", "i2", "1.1.1.2"))
	repo.Register(testInstance("B", "i1", "2.2.2.1"))

	services := repo.SnapshotServices()
	counts := make(map[string]int)
	for _, svc := range services {
		counts[svc.ServiceID] = len(svc.Instances)
	}
	if counts["A"] != 2 || counts["B"] != 1 {
		t.Fatalf("unexpected grouping: %+v", counts)
	}
}

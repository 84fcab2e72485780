package auxiliary

import (
	"testing"

	"github.com/mydotey/artemis/pkg/model"
)

func TestPullOutLookupDelegatesToZoneAndInstance(t *testing.T) {
	zone := NewZoneOperationManager(nil)
	zone.recs[zoneKey{"r1", "z1"}] = model.ZoneOperationRecord{RegionID: "r1", ZoneID: "z1", Operation: model.OperationPullOut}

	inst := NewInstanceOperationManager(nil)
	key := model.InstanceKey{RegionID: "r1", ZoneID: "z2", ServiceID: "svc", InstanceID: "i1"}
	inst.instances[key] = model.InstanceOperationRecord{Key: key, Operation: model.OperationPullOut}
	inst.servers[serverKey{"r1", "10.0.0.9"}] = model.ServerOperationRecord{RegionID: "r1", IP: "10.0.0.9", Operation: model.OperationPullOut}

	lookup := (&Managers{Zone: zone, Instance: inst}).PullOutLookup()

	if !lookup.IsZonePulledOut("r1", "z1") {
		t.Fatalf("expected zone r1/z1 to be pulled out")
	}
	if lookup.IsZonePulledOut("r1", "z-other") {
		t.Fatalf("expected unknown zone to not be pulled out")
	}
	if !lookup.IsInstancePulledOut(key) {
		t.Fatalf("expected instance to be pulled out")
	}
	if !lookup.IsServerPulledOut("r1", "10.0.0.9") {
		t.Fatalf("expected server to be pulled out")
	}
	if lookup.IsServerPulledOut("r1", "10.0.0.1") {
		t.Fatalf("expected unrelated server to not be pulled out")
	}
}

func TestCanaryManagerLookupReflectsLoadedConfig(t *testing.T) {
	m := NewCanaryManager(nil)
	m.configs["svc-a"] = model.CanaryConfig{ServiceID: "svc-a", Enabled: true, IPWhitelist: []string{"10.0.0.1"}}

	cc, ok := m.CanaryConfig("svc-a")
	if !ok || !cc.Enabled {
		t.Fatalf("expected enabled canary config for svc-a, got %+v ok=%v", cc, ok)
	}
	if _, ok := m.CanaryConfig("svc-b"); ok {
		t.Fatalf("expected no canary config for unknown service")
	}
}

func TestRouteManagerActiveRulePicksActiveStatus(t *testing.T) {
	m := NewRouteManager(nil)
	m.rules[routeKey{"svc", "r-inactive"}] = model.RouteRule{ServiceID: "svc", RuleID: "r-inactive", Status: model.RouteRuleInactive}
	m.rules[routeKey{"svc", "r-active"}] = model.RouteRule{ServiceID: "svc", RuleID: "r-active", Status: model.RouteRuleActive}

	rule, ok := m.ActiveRule("svc")
	if !ok || rule.RuleID != "r-active" {
		t.Fatalf("expected the active rule to be returned, got %+v ok=%v", rule, ok)
	}
	if _, ok := m.ActiveRule("svc-unknown"); ok {
		t.Fatalf("expected no active rule for an unknown service")
	}
}

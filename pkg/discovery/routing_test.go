package discovery

import (
	"testing"

	"github.com/mydotey/artemis/pkg/model"
)

// TestWeightedRoundRobinIsDeterministic: two groups G1
// weight 30, G2 weight 70, two instances per group. 10000 invocations
// deterministically yield 3000 G1-only and 7000 G2-only selections.
func TestWeightedRoundRobinIsDeterministic(t *testing.T) {
	rule := model.RouteRule{
		ServiceID: "A", RuleID: "r1", Status: model.RouteRuleActive,
		Strategy: model.StrategyWeightedRoundRobin,
		Groups: []model.Group{
			{GroupID: "G1", Weight: 30, Status: model.GroupActive},
			{GroupID: "G2", Weight: 70, Status: model.GroupActive},
		},
	}
	instances := []*model.Instance{
		inst("A", "i1", "1.1.1.1", "G1", model.StatusUp),
		inst("A", "i2", "1.1.1.2", "G1", model.StatusUp),
		inst("A", "i3", "1.1.1.3", "G2", model.StatusUp),
		inst("A", "i4", "1.1.1.4", "G2", model.StatusUp),
	}

	engine := NewEngine()
	g1Count, g2Count := 0, 0
	for i := 0; i < 10000; i++ {
		selected := engine.Route(&rule, instances, RouteContext{})
		switch selected[0].GroupID {
		case "G1":
			g1Count++
		case "G2":
			g2Count++
		}
	}

	if g1Count != 3000 {
		t.Fatalf("expected 3000 G1 selections, got %d", g1Count)
	}
	if g2Count != 7000 {
		t.Fatalf("expected 7000 G2 selections, got %d", g2Count)
	}
}

func TestInactiveGroupsContributeZeroWeight(t *testing.T) {
	rule := model.RouteRule{
		ServiceID: "A", RuleID: "r1", Strategy: model.StrategyWeightedRoundRobin,
		Groups: []model.Group{
			{GroupID: "G1", Weight: 50, Status: model.GroupInactive},
			{GroupID: "G2", Weight: 50, Status: model.GroupActive},
		},
	}
	instances := []*model.Instance{
		inst("A", "i1", "1.1.1.1", "G1", model.StatusUp),
		inst("A", "i2", "1.1.1.2", "G2", model.StatusUp),
	}

	engine := NewEngine()
	for i := 0; i < 10; i++ {
		selected := engine.Route(&rule, instances, RouteContext{})
		if len(selected) != 1 || selected[0].GroupID != "G2" {
			t.Fatalf("expected only the active group G2 to ever be selected, got %+v", selected)
		}
	}
}

func TestCloseByVisitPrefersSameZone(t *testing.T) {
	rule := model.RouteRule{
		ServiceID: "A", RuleID: "r1", Strategy: model.StrategyCloseByVisit,
		Groups: []model.Group{
			{GroupID: "near", Weight: 10, Status: model.GroupActive},
			{GroupID: "far", Weight: 90, Status: model.GroupActive},
		},
	}
	near := &model.Instance{RegionID: "us-east", ZoneID: "zone-a", ServiceID: "A", GroupID: "near", InstanceID: "i1", IP: "1.1.1.1", Port: 80, URL: "http://1.1.1.1", Status: model.StatusUp}
	far := &model.Instance{RegionID: "us-west", ZoneID: "zone-b", ServiceID: "A", GroupID: "far", InstanceID: "i2", IP: "2.2.2.2", Port: 80, URL: "http://2.2.2.2", Status: model.StatusUp}

	engine := NewEngine()
	selected := engine.Route(&rule, []*model.Instance{near, far}, RouteContext{ClientRegion: "us-east", ClientZone: "zone-a"})
	if len(selected) != 1 || selected[0] != near {
		t.Fatalf("expected the same-zone group to be preferred despite lower weight, got %+v", selected)
	}
}

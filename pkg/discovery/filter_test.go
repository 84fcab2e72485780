package discovery

import (
	"testing"

	"github.com/mydotey/artemis/pkg/model"
)

func inst(serviceID, instanceID, ip, groupID string, status model.InstanceStatus) *model.Instance {
	return &model.Instance{
		RegionID: "us-east", ZoneID: "zone-a", ServiceID: serviceID, GroupID: groupID,
		InstanceID: instanceID, IP: ip, Port: 80, URL: "http://" + ip, Status: status,
	}
}

func TestStatusFilterKeepsOnlyAllowedStatus(t *testing.T) {
	f := NewStatusFilter()
	svc := &model.Service{ServiceID: "A", Instances: []*model.Instance{
		inst("A", "i1", "1.1.1.1", "", model.StatusUp),
		inst("A", "i2", "1.1.1.2", "", model.StatusDown),
	}}

	out := f.Apply(svc, &model.DiscoveryConfig{ServiceID: "A"})
	if len(out.Instances) != 1 || out.Instances[0].InstanceID != "i1" {
		t.Fatalf("expected only the Up instance to survive, got %+v", out.Instances)
	}
}

type fakeCanaryLookup struct {
	cfg model.CanaryConfig
	ok  bool
}

func (f fakeCanaryLookup) CanaryConfig(serviceID string) (model.CanaryConfig, bool) {
	return f.cfg, f.ok
}

// TestCanaryWhitelistSplitsCallers: non-canary callers see only
// non-whitelisted instances; canary-flagged callers see only the whitelist.
func TestCanaryWhitelistSplitsCallers(t *testing.T) {
	svc := &model.Service{ServiceID: "S", Instances: []*model.Instance{
		inst("S", "i1", "10.0.0.1", "", model.StatusUp),
		inst("S", "i2", "10.0.0.2", "", model.StatusUp),
		inst("S", "i3", "10.0.0.3", "", model.StatusUp),
		inst("S", "i4", "10.0.0.4", "", model.StatusUp),
	}}
	f := NewCanaryFilter(fakeCanaryLookup{
		ok: true,
		cfg: model.CanaryConfig{
			ServiceID:   "S",
			Enabled:     true,
			IPWhitelist: []string{"10.0.0.1", "10.0.0.2"},
		},
	})

	nonCanary := f.Apply(svc, &model.DiscoveryConfig{ServiceID: "S"})
	gotIPs := ipsOf(nonCanary.Instances)
	if !sameSet(gotIPs, []string{"10.0.0.3", "10.0.0.4"}) {
		t.Fatalf("expected non-canary caller to see {3,4}, got %v", gotIPs)
	}

	canary := f.Apply(svc, &model.DiscoveryConfig{ServiceID: "S", DiscoveryData: map[string]string{"canary": "true"}})
	gotIPs = ipsOf(canary.Instances)
	if !sameSet(gotIPs, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Fatalf("expected canary caller to see {1,2}, got %v", gotIPs)
	}
}

func TestManagementFilterDropsPulledOut(t *testing.T) {
	f := NewManagementFilter(fakeLookup{pulledOutInstance: true})
	svc := &model.Service{ServiceID: "A", Instances: []*model.Instance{inst("A", "i1", "1.1.1.1", "", model.StatusUp)}}
	out := f.Apply(svc, &model.DiscoveryConfig{ServiceID: "A"})
	if len(out.Instances) != 0 {
		t.Fatalf("expected pulled-out instance to be dropped")
	}
}

type fakeLookup struct {
	pulledOutInstance bool
	pulledOutServer   bool
	pulledOutZone     bool
}

func (f fakeLookup) IsInstancePulledOut(model.InstanceKey) bool { return f.pulledOutInstance }
func (f fakeLookup) IsServerPulledOut(string, string) bool      { return f.pulledOutServer }
func (f fakeLookup) IsZonePulledOut(string, string) bool        { return f.pulledOutZone }

func ipsOf(instances []*model.Instance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.IP
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}

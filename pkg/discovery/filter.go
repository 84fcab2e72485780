// Package discovery implements the read path: the discovery service, the
// filter chain, and the routing engine that together turn "all live
// instances for a service" into "the instances this caller should see".
package discovery

import (
	"github.com/mydotey/artemis/pkg/model"
)

// Filter transforms a Service under a DiscoveryConfig context. Filters are
// applied in a fixed order by the Chain; each sees the output of the one
// before it.
type Filter interface {
	Apply(svc *model.Service, cfg *model.DiscoveryConfig) *model.Service
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(*model.Service, *model.DiscoveryConfig) *model.Service

func (f FilterFunc) Apply(svc *model.Service, cfg *model.DiscoveryConfig) *model.Service {
	return f(svc, cfg)
}

// Chain runs an ordered list of filters. The canonical chain is
// StatusFilter, ManagementFilter, CanaryFilter, GroupRoutingFilter, in that
// order, as internal/app builds it with NewChain.
type Chain struct {
	filters []Filter
}

// NewChain builds a Chain from an explicit filter list.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Apply runs every filter in order, threading the output of one into the
// input of the next.
func (c *Chain) Apply(svc *model.Service, cfg *model.DiscoveryConfig) *model.Service {
	for _, f := range c.filters {
		svc = f.Apply(svc, cfg)
		if svc == nil {
			return &model.Service{ServiceID: cfg.ServiceID}
		}
	}
	return svc
}

func withInstances(svc *model.Service, instances []*model.Instance) *model.Service {
	return &model.Service{ServiceID: svc.ServiceID, Instances: instances, Metadata: svc.Metadata}
}

// StatusFilter keeps only instances whose status is in the allowed set
// (default {Up}).
type StatusFilter struct {
	Allowed map[model.InstanceStatus]bool
}

// NewStatusFilter creates a StatusFilter allowing only the given statuses.
// With no statuses given, it defaults to {Up}.
func NewStatusFilter(allowed ...model.InstanceStatus) *StatusFilter {
	if len(allowed) == 0 {
		allowed = []model.InstanceStatus{model.StatusUp}
	}
	m := make(map[model.InstanceStatus]bool, len(allowed))
	for _, s := range allowed {
		m[s] = true
	}
	return &StatusFilter{Allowed: m}
}

func (f *StatusFilter) Apply(svc *model.Service, _ *model.DiscoveryConfig) *model.Service {
	out := make([]*model.Instance, 0, len(svc.Instances))
	for _, inst := range svc.Instances {
		if f.Allowed[inst.Status] {
			out = append(out, inst)
		}
	}
	return withInstances(svc, out)
}

// PullOutLookup answers management pull-out questions for the
// ManagementFilter, backed by the auxiliary configuration managers.
type PullOutLookup interface {
	IsInstancePulledOut(key model.InstanceKey) bool
	IsServerPulledOut(regionID, ip string) bool
	IsZonePulledOut(regionID, zoneID string) bool
}

// ManagementFilter drops instances pulled out at the instance, server
// (ip+region), or zone level.
type ManagementFilter struct {
	Lookup PullOutLookup
}

func NewManagementFilter(lookup PullOutLookup) *ManagementFilter {
	return &ManagementFilter{Lookup: lookup}
}

func (f *ManagementFilter) Apply(svc *model.Service, _ *model.DiscoveryConfig) *model.Service {
	if f.Lookup == nil {
		return svc
	}
	out := make([]*model.Instance, 0, len(svc.Instances))
	for _, inst := range svc.Instances {
		if f.Lookup.IsInstancePulledOut(inst.Key()) {
			continue
		}
		if f.Lookup.IsServerPulledOut(inst.RegionID, inst.IP) {
			continue
		}
		if f.Lookup.IsZonePulledOut(inst.RegionID, inst.ZoneID) {
			continue
		}
		out = append(out, inst)
	}
	return withInstances(svc, out)
}

// CanaryLookup answers canary configuration questions for the CanaryFilter.
type CanaryLookup interface {
	CanaryConfig(serviceID string) (model.CanaryConfig, bool)
}

// CanaryFilter gates canary-flagged instances behind an IP whitelist. When
// canary is enabled for a service: non-canary callers see only instances
// whose IP is NOT in the whitelist; callers whose discovery_data.canary is
// "true" see only the whitelisted (canary) instances.
type CanaryFilter struct {
	Lookup CanaryLookup
}

func NewCanaryFilter(lookup CanaryLookup) *CanaryFilter {
	return &CanaryFilter{Lookup: lookup}
}

func (f *CanaryFilter) Apply(svc *model.Service, cfg *model.DiscoveryConfig) *model.Service {
	if f.Lookup == nil {
		return svc
	}
	cc, ok := f.Lookup.CanaryConfig(svc.ServiceID)
	if !ok || !cc.Enabled {
		return svc
	}

	whitelist := make(map[string]bool, len(cc.IPWhitelist))
	for _, ip := range cc.IPWhitelist {
		whitelist[ip] = true
	}

	isCanaryCaller := cfg.DiscoveryData["canary"] == "true"

	out := make([]*model.Instance, 0, len(svc.Instances))
	for _, inst := range svc.Instances {
		inWhitelist := whitelist[inst.IP]
		if isCanaryCaller == inWhitelist {
			out = append(out, inst)
		}
	}
	return withInstances(svc, out)
}

// RouteRuleLookup answers which active RouteRule, if any, applies to a
// service for the GroupRoutingFilter.
type RouteRuleLookup interface {
	ActiveRule(serviceID string) (model.RouteRule, bool)
}

// GroupRoutingFilter applies the first active RouteRule for the service via
// the routing Engine.
type GroupRoutingFilter struct {
	Lookup RouteRuleLookup
	Engine *Engine
}

func NewGroupRoutingFilter(lookup RouteRuleLookup, engine *Engine) *GroupRoutingFilter {
	return &GroupRoutingFilter{Lookup: lookup, Engine: engine}
}

func (f *GroupRoutingFilter) Apply(svc *model.Service, cfg *model.DiscoveryConfig) *model.Service {
	if f.Lookup == nil || f.Engine == nil {
		return svc
	}
	rule, ok := f.Lookup.ActiveRule(svc.ServiceID)
	if !ok {
		return svc
	}
	selected := f.Engine.Route(&rule, svc.Instances, RouteContextFromConfig(cfg))
	return withInstances(svc, selected)
}

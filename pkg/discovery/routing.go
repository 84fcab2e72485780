package discovery

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mydotey/artemis/pkg/model"
)

// RouteContext is the caller-location context a RouteRule strategy uses to
// pick a group, built from a DiscoveryConfig's discovery_data.
type RouteContext struct {
	ClientIP     string
	ClientRegion string
	ClientZone   string
}

// RouteContextFromConfig extracts a RouteContext from discovery_data.
func RouteContextFromConfig(cfg *model.DiscoveryConfig) RouteContext {
	return RouteContext{
		ClientIP:     cfg.DiscoveryData["client_ip"],
		ClientRegion: cfg.DiscoveryData["client_region"],
		ClientZone:   cfg.DiscoveryData["client_zone"],
	}
}

// Engine executes a RouteRule's strategy to select which instances a caller
// sees, maintaining a monotonic per-(service,rule) counter for
// WeightedRoundRobin's deterministic rotation.
type Engine struct {
	mu       sync.Mutex
	counters map[string]*uint64
}

// NewEngine creates a routing Engine.
func NewEngine() *Engine {
	return &Engine{counters: make(map[string]*uint64)}
}

func (e *Engine) counter(ruleKey string) *uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.counters[ruleKey]
	if !ok {
		c = new(uint64)
		e.counters[ruleKey] = c
	}
	return c
}

// Route selects the instances belonging to one group chosen by rule's
// strategy, from among instances partitioned by group_id.
func (e *Engine) Route(rule *model.RouteRule, instances []*model.Instance, ctx RouteContext) []*model.Instance {
	groups := rule.ActiveGroups()
	if len(groups) == 0 {
		return instances
	}

	byGroup := make(map[string][]*model.Instance)
	for _, inst := range instances {
		byGroup[inst.GroupID] = append(byGroup[inst.GroupID], inst)
	}

	var chosen string
	switch rule.Strategy {
	case model.StrategyCloseByVisit:
		chosen = e.closeByVisit(groups, byGroup, ctx)
	default: // model.StrategyWeightedRoundRobin
		chosen = e.weightedRoundRobin(rule, groups)
	}
	return byGroup[chosen]
}

// weightedRoundRobin picks a group deterministically via counter mod
// total_weight against the cumulative weight ranges of active groups.
func (e *Engine) weightedRoundRobin(rule *model.RouteRule, groups []model.Group) string {
	totalWeight := 0
	for _, g := range groups {
		totalWeight += g.Weight
	}
	if totalWeight == 0 {
		return groups[0].GroupID
	}

	counterKey := rule.ServiceID + "/" + rule.RuleID
	c := e.counter(counterKey)
	n := atomic.AddUint64(c, 1) - 1
	target := int(n % uint64(totalWeight))

	cumulative := 0
	for _, g := range groups {
		cumulative += g.Weight
		if target < cumulative {
			return g.GroupID
		}
	}
	return groups[len(groups)-1].GroupID
}

// closeByVisit prefers the group whose region+zone matches the caller,
// falling back to same-region, then any group, ties broken by weight then
// name.
func (e *Engine) closeByVisit(groups []model.Group, byGroup map[string][]*model.Instance, ctx RouteContext) string {
	sameZone := e.filterByLocation(groups, byGroup, ctx.ClientRegion, ctx.ClientZone)
	if len(sameZone) > 0 {
		return e.bestByWeightThenName(sameZone)
	}
	sameRegion := e.filterByLocation(groups, byGroup, ctx.ClientRegion, "")
	if len(sameRegion) > 0 {
		return e.bestByWeightThenName(sameRegion)
	}
	return e.bestByWeightThenName(groups)
}

func (e *Engine) filterByLocation(groups []model.Group, byGroup map[string][]*model.Instance, region, zone string) []model.Group {
	var out []model.Group
	for _, g := range groups {
		insts := byGroup[g.GroupID]
		if len(insts) == 0 {
			continue
		}
		for _, inst := range insts {
			if region != "" && inst.RegionID != region {
				continue
			}
			if zone != "" && inst.ZoneID != zone {
				continue
			}
			out = append(out, g)
			break
		}
	}
	return out
}

func (e *Engine) bestByWeightThenName(groups []model.Group) string {
	sorted := append([]model.Group(nil), groups...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].GroupID < sorted[j].GroupID
	})
	return sorted[0].GroupID
}

package model

import "time"

// OperationKind is a pull-in/pull-out directive applied by the management
// filter to otherwise-healthy instances.
type OperationKind string

const (
	OperationPullIn  OperationKind = "pull-in"
	OperationPullOut OperationKind = "pull-out"
)

// CanaryConfig gates discovery of a service's canary-flagged instances
// behind an IP allow-list.
type CanaryConfig struct {
	ServiceID   string    `json:"service_id"`
	Enabled     bool      `json:"enabled"`
	IPWhitelist []string  `json:"ip_whitelist"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupStatus is whether a routing Group currently receives traffic.
type GroupStatus string

const (
	GroupActive   GroupStatus = "active"
	GroupInactive GroupStatus = "inactive"
)

// Group is one weighted/geographic partition within a RouteRule.
type Group struct {
	GroupID string      `json:"group_id"`
	Weight  int         `json:"weight"`
	Status  GroupStatus `json:"status"`
}

// RouteRuleStatus is whether a RouteRule is considered during routing.
type RouteRuleStatus string

const (
	RouteRuleActive   RouteRuleStatus = "active"
	RouteRuleInactive RouteRuleStatus = "inactive"
)

// RouteStrategy selects the routing algorithm a RouteRule applies.
type RouteStrategy string

const (
	StrategyWeightedRoundRobin RouteStrategy = "weighted-round-robin"
	StrategyCloseByVisit       RouteStrategy = "close-by-visit"
)

// RouteRule is a per-service weighted/geographic grouping applied during
// discovery by GroupRoutingFilter.
type RouteRule struct {
	ServiceID string          `json:"service_id"`
	RuleID    string          `json:"rule_id"`
	Status    RouteRuleStatus `json:"status"`
	Strategy  RouteStrategy   `json:"strategy"`
	Groups    []Group         `json:"groups"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ActiveGroups returns the rule's groups with GroupActive status, each
// weight clamped to [1,100].
func (r *RouteRule) ActiveGroups() []Group {
	out := make([]Group, 0, len(r.Groups))
	for _, g := range r.Groups {
		if g.Status != GroupActive {
			continue
		}
		w := g.Weight
		if w < 1 {
			w = 1
		}
		if w > 100 {
			w = 100
		}
		g.Weight = w
		out = append(out, g)
	}
	return out
}

// ZoneOperationRecord is the latest pull-in/pull-out directive for a zone.
type ZoneOperationRecord struct {
	RegionID  string        `json:"region_id"`
	ZoneID    string        `json:"zone_id"`
	Operation OperationKind `json:"operation"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// InstanceOperationRecord is the latest pull-in/pull-out directive for one
// instance key.
type InstanceOperationRecord struct {
	Key       InstanceKey   `json:"instance_key"`
	Operation OperationKind `json:"operation"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ServerOperationRecord is the latest pull-in/pull-out directive for an
// (region_id, ip) pair, independent of which instance_id is bound there.
type ServerOperationRecord struct {
	RegionID  string        `json:"region_id"`
	IP        string        `json:"ip"`
	Operation OperationKind `json:"operation"`
	UpdatedAt time.Time     `json:"updated_at"`
}

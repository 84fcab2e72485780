package auxiliary

import (
	"context"
	"fmt"
	"sync"

	"github.com/mydotey/artemis/pkg/model"
)

// routeKey identifies one RouteRule by its owning service and rule id.
type routeKey struct {
	serviceID string
	ruleID    string
}

// RouteManager holds the loaded set of route rules, satisfying
// discovery.RouteRuleLookup by returning the first active rule per service.
type RouteManager struct {
	store *Store

	mu    sync.RWMutex
	rules map[routeKey]model.RouteRule
}

func NewRouteManager(store *Store) *RouteManager {
	return &RouteManager{store: store, rules: make(map[routeKey]model.RouteRule)}
}

func (m *RouteManager) Reload(ctx context.Context) error {
	rules, err := m.store.LoadRouteRules(ctx)
	if err != nil {
		return fmt.Errorf("loading route rules: %w", err)
	}
	next := make(map[routeKey]model.RouteRule, len(rules))
	for _, r := range rules {
		next[routeKey{r.ServiceID, r.RuleID}] = r
	}
	m.mu.Lock()
	m.rules = next
	m.mu.Unlock()
	return nil
}

// ActiveRule implements discovery.RouteRuleLookup: the first Active rule
// found for serviceID, in no particular order across rule ids (a service is
// expected to have at most one active rule at a time).
func (m *RouteManager) ActiveRule(serviceID string) (model.RouteRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, r := range m.rules {
		if k.serviceID == serviceID && r.Status == model.RouteRuleActive {
			return r, true
		}
	}
	return model.RouteRule{}, false
}

// Get returns one rule for management reads.
func (m *RouteManager) Get(serviceID, ruleID string) (model.RouteRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[routeKey{serviceID, ruleID}]
	return r, ok
}

// List returns every rule for a service.
func (m *RouteManager) List(serviceID string) []model.RouteRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.RouteRule
	for k, r := range m.rules {
		if k.serviceID == serviceID {
			out = append(out, r)
		}
	}
	return out
}

func (m *RouteManager) Put(ctx context.Context, r model.RouteRule) error {
	if err := m.store.UpsertRouteRule(ctx, r); err != nil {
		return err
	}
	m.mu.Lock()
	m.rules[routeKey{r.ServiceID, r.RuleID}] = r
	m.mu.Unlock()
	return nil
}

func (m *RouteManager) Delete(ctx context.Context, serviceID, ruleID string) error {
	if err := m.store.DeleteRouteRule(ctx, serviceID, ruleID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.rules, routeKey{serviceID, ruleID})
	m.mu.Unlock()
	return nil
}

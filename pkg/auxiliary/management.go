package auxiliary

import (
	"context"
	"fmt"

	"github.com/mydotey/artemis/pkg/model"
)

// Managers bundles the four auxiliary managers loaded at startup and
// reloadable on a timer, plus the store backing all of them.
type Managers struct {
	Store    *Store
	Canary   *CanaryManager
	Route    *RouteManager
	Zone     *ZoneOperationManager
	Instance *InstanceOperationManager
}

// NewManagers builds empty managers bound to store. Call ReloadAll once
// before serving discovery traffic.
func NewManagers(store *Store) *Managers {
	return &Managers{
		Store:    store,
		Canary:   NewCanaryManager(store),
		Route:    NewRouteManager(store),
		Zone:     NewZoneOperationManager(store),
		Instance: NewInstanceOperationManager(store),
	}
}

// ReloadAll reloads every manager from the store. A failure in one kind does
// not prevent the others from loading; the first error encountered is
// returned after all have been attempted, per the design decision that a
// failed auxiliary load is non-fatal to serving discovery traffic.
func (m *Managers) ReloadAll(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(m.Canary.Reload(ctx))
	record(m.Route.Reload(ctx))
	record(m.Zone.Reload(ctx))
	record(m.Instance.Reload(ctx))
	if firstErr != nil {
		return fmt.Errorf("reloading auxiliary configuration: %w", firstErr)
	}
	return nil
}

// PullOutLookup adapts the Zone and Instance managers into the single
// discovery.PullOutLookup the ManagementFilter expects.
type PullOutLookup struct {
	Zone     *ZoneOperationManager
	Instance *InstanceOperationManager
}

func (m *Managers) PullOutLookup() *PullOutLookup {
	return &PullOutLookup{Zone: m.Zone, Instance: m.Instance}
}

func (l *PullOutLookup) IsInstancePulledOut(key model.InstanceKey) bool {
	return l.Instance.IsInstancePulledOut(key)
}

func (l *PullOutLookup) IsServerPulledOut(regionID, ip string) bool {
	return l.Instance.IsServerPulledOut(regionID, ip)
}

func (l *PullOutLookup) IsZonePulledOut(regionID, zoneID string) bool {
	return l.Zone.IsPulledOut(regionID, zoneID)
}

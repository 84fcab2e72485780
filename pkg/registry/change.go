package registry

import (
	"sync"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

// subscriberBuffer is the per-receiver channel depth. A subscriber slower
// than this is dropped from the next publish rather than blocking writers.
const subscriberBuffer = 64

// ChangeManager fans out InstanceChange events to per-service subscribers.
// Publish never blocks: a full or closed receiver is silently dropped from
// that publish, and recovery is left to the client re-fetching the full
// service list, per the best-effort contract.
type ChangeManager struct {
	mu          sync.Mutex
	subscribers map[string]map[int]chan model.InstanceChange
	nextID      int
	nowFn       func() time.Time
}

// NewChangeManager creates an empty ChangeManager.
func NewChangeManager() *ChangeManager {
	return &ChangeManager{
		subscribers: make(map[string]map[int]chan model.InstanceChange),
		nowFn:       time.Now,
	}
}

// Subscription is a live receiver for one service_id's changes.
type Subscription struct {
	ch        chan model.InstanceChange
	serviceID string
	id        int
	mgr       *ChangeManager
}

// C returns the channel delivering changes to this subscription.
func (s *Subscription) C() <-chan model.InstanceChange { return s.ch }

// Close deregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.mgr.mu.Lock()
	defer s.mgr.mu.Unlock()
	if subs, ok := s.mgr.subscribers[s.serviceID]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.mgr.subscribers, s.serviceID)
		}
	}
}

// Subscribe registers a new receiver for service_id's change events.
func (m *ChangeManager) Subscribe(serviceID string) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs, ok := m.subscribers[serviceID]
	if !ok {
		subs = make(map[int]chan model.InstanceChange)
		m.subscribers[serviceID] = subs
	}
	m.nextID++
	id := m.nextID
	ch := make(chan model.InstanceChange, subscriberBuffer)
	subs[id] = ch
	return &Subscription{ch: ch, serviceID: serviceID, id: id, mgr: m}
}

// Publish non-blockingly delivers change to every current subscriber of
// serviceID. A receiver whose buffer is full is dropped from this publish.
func (m *ChangeManager) Publish(serviceID string, change model.InstanceChange) {
	m.mu.Lock()
	subs := m.subscribers[serviceID]
	chans := make([]chan model.InstanceChange, 0, len(subs))
	for _, ch := range subs {
		chans = append(chans, ch)
	}
	m.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- change:
		default:
		}
	}
}

// PublishRegister publishes a New (or Change, on re-register) event.
func (m *ChangeManager) PublishRegister(inst *model.Instance, wasInsert bool) {
	ct := model.ChangeChange
	if wasInsert {
		ct = model.ChangeNew
	}
	m.Publish(inst.ServiceID, model.InstanceChange{Instance: inst, ChangeType: ct, ChangeTime: m.nowFn()})
}

// PublishUnregister publishes a Delete event for the last-known instance.
func (m *ChangeManager) PublishUnregister(inst *model.Instance) {
	m.Publish(inst.ServiceID, model.InstanceChange{Instance: inst, ChangeType: model.ChangeDelete, ChangeTime: m.nowFn()})
}

// PublishUpdate publishes a Change event.
func (m *ChangeManager) PublishUpdate(inst *model.Instance) {
	m.Publish(inst.ServiceID, model.InstanceChange{Instance: inst, ChangeType: model.ChangeChange, ChangeTime: m.nowFn()})
}

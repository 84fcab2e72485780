package registry

import (
	"testing"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

func TestChangeManagerPublishDeliversToSubscriber(t *testing.T) {
	m := NewChangeManager()
	sub := m.Subscribe("A")
	defer sub.Close()

	inst := testInstance("A", "i1", "1.1.1.1")
	m.PublishRegister(inst, true)

	select {
	case change := <-sub.C():
		if change.ChangeType != model.ChangeNew {
			t.Fatalf("expected New change type, got %s", change.ChangeType)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published change")
	}
}

func TestChangeManagerPublishIsNonBlockingForFullSubscriber(t *testing.T) {
	m := NewChangeManager()
	sub := m.Subscribe("A")
	defer sub.Close()

	inst := testInstance("A", "i1", "1.1.1.1")
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			m.PublishRegister(inst, true)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}

func TestChangeManagerSubscribersAreIsolatedPerService(t *testing.T) {
	m := NewChangeManager()
	subA := m.Subscribe("A")
	subB := m.Subscribe("B")
	defer subA.Close()
	defer subB.Close()

	m.PublishRegister(testInstance("A", "i1", "1.1.1.1"), true)

	select {
	case <-subA.C():
	case <-time.After(time.Second):
		t.Fatal("expected subscriber of A to receive the change")
	}

	select {
	case <-subB.C():
		t.Fatal("subscriber of B should not receive a change for A")
	case <-time.After(50 * time.Millisecond):
	}
}

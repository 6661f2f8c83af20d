package watch

import (
	"context"
	"testing"
	"time"

	"dockhand/internal/lifecycle"
	"dockhand/internal/project"
)

func change(name string, phase project.Phase) lifecycle.StatusChange {
	return lifecycle.StatusChange{Project: name, Phase: phase, At: time.Now()}
}

func TestBrokerSnapshotThenLive(t *testing.T) {
	b := NewBroker()
	b.Publish(change("shop", project.PhaseRunning))
	b.Publish(change("blog", project.PhaseStopped))
	b.Publish(change("shop", project.PhaseDegraded))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshot, ch := b.Subscribe(ctx)
	if len(snapshot) != 2 {
		t.Fatalf("snapshot = %d entries, want 2", len(snapshot))
	}
	// Sorted by project, latest change retained.
	if snapshot[0].Project != "blog" || snapshot[1].Project != "shop" {
		t.Fatalf("snapshot order = [%s %s], want [blog shop]", snapshot[0].Project, snapshot[1].Project)
	}
	if snapshot[1].Phase != project.PhaseDegraded {
		t.Fatalf("shop snapshot phase = %v, want degraded", snapshot[1].Phase)
	}

	b.Publish(change("shop", project.PhaseStopped))
	select {
	case got := <-ch:
		if got.Project != "shop" || got.Phase != project.PhaseStopped {
			t.Fatalf("live change = %+v, want shop stopped", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no live change delivered")
	}
}

func TestBrokerCancelClosesChannel(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	_, ch := b.Subscribe(ctx)

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received change, want closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	deadline := time.Now().Add(time.Second)
	for b.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers() = %d, want 0", b.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _ = b.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBufferCap*2; i++ {
			b.Publish(change("shop", project.PhaseRunning))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBrokerForget(t *testing.T) {
	b := NewBroker()
	b.Publish(change("shop", project.PhaseRunning))
	b.Forget("shop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snapshot, _ := b.Subscribe(ctx)
	if len(snapshot) != 0 {
		t.Fatalf("snapshot = %+v, want empty", snapshot)
	}
}

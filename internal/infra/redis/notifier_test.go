package redis

import (
	"context"
	"testing"
	"time"
)

func TestNotifierDeliversAcrossClients(t *testing.T) {
	_, client := newMiniredis(t)
	subscriber := NewNotifier(client)
	publisher := NewNotifier(client)
	ctx := context.Background()

	signals, cancel, err := subscriber.Subscribe(ctx, "ABC234")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := publisher.Publish(ctx, "ABC234"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected ranking signal")
	}

	if err := publisher.Publish(ctx, "OTHER2"); err != nil {
		t.Fatalf("publish other: %v", err)
	}
	select {
	case <-signals:
		t.Fatalf("unexpected signal for another code")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotifierCancelClosesChannel(t *testing.T) {
	_, client := newMiniredis(t)
	notifier := NewNotifier(client)

	signals, cancel, err := notifier.Subscribe(context.Background(), "ABC234")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	cancel()

	select {
	case _, ok := <-signals:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

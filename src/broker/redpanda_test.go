package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"operator-dashboard/src/contracts"
)

// unreachable is a seed address nothing listens on. Clients are created
// lazily, so subscriptions can be set up and torn down without a cluster.
var unreachable = []string{"127.0.0.1:1"}

func waitClosed(t *testing.T, ch <-chan Message) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel was not closed")
		}
	}
}

func TestNewRedpandaBroker_RequiresBrokers(t *testing.T) {
	if _, err := NewRedpandaBroker(nil, nil); err == nil {
		t.Fatal("expected error without broker addresses")
	}
}

func TestRedpandaBroker_SubscribeValidation(t *testing.T) {
	b, err := NewRedpandaBroker(unreachable, nil)
	if err != nil {
		t.Fatalf("NewRedpandaBroker failed: %v", err)
	}
	defer b.Close()

	if _, err := b.Subscribe(context.Background(), "", "group"); err == nil {
		t.Error("expected error for empty topic")
	}
	if _, err := b.Subscribe(context.Background(), contracts.TopicUpdates, ""); err == nil {
		t.Error("expected error for empty group")
	}
}

func TestRedpandaBroker_SubscriptionEndsWithContext(t *testing.T) {
	b, err := NewRedpandaBroker(unreachable, nil)
	if err != nil {
		t.Fatalf("NewRedpandaBroker failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, contracts.TopicUpdates, "viewer")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if _, err := b.Subscribe(context.Background(), contracts.TopicUpdates, "viewer"); !errors.Is(err, ErrDuplicateSubscription) {
		t.Errorf("second Subscribe error = %v, want ErrDuplicateSubscription", err)
	}

	cancel()
	waitClosed(t, ch)

	// The group was released, so it can subscribe again.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	if _, err := b.Subscribe(ctx2, contracts.TopicUpdates, "viewer"); err != nil {
		t.Errorf("Subscribe after release failed: %v", err)
	}
}

func TestRedpandaBroker_CloseEndsSubscriptions(t *testing.T) {
	b, err := NewRedpandaBroker(unreachable, nil)
	if err != nil {
		t.Fatalf("NewRedpandaBroker failed: %v", err)
	}

	ch, err := b.Subscribe(context.Background(), contracts.TopicUpdates, "viewer")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	waitClosed(t, ch)

	if _, err := b.Subscribe(context.Background(), contracts.TopicUpdates, "other"); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("Subscribe after Close error = %v, want ErrBrokerClosed", err)
	}
	if err := b.Publish(context.Background(), contracts.TopicUpdates, "4.14", []byte(`{}`)); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("Publish after Close error = %v, want ErrBrokerClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

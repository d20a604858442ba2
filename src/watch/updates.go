package watch

import (
	"context"
	"fmt"
	"sync"

	"operator-dashboard/src/broker"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
)

// UpdateWatcher signals every DashboardUpdated event published for one
// operator. It lets viewers on other hosts follow fetch runs.
type UpdateWatcher struct {
	messages <-chan broker.Message
	operator string
	logger   logger.Logger
	changes  chan struct{}
}

// NewUpdateWatcher subscribes to the dashboard update topic as groupID.
// The subscription ends with ctx.
func NewUpdateWatcher(ctx context.Context, b broker.Broker, operatorName, groupID string, log logger.Logger) (*UpdateWatcher, error) {
	msgs, err := b.Subscribe(ctx, contracts.TopicUpdates, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicUpdates, err)
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &UpdateWatcher{
		messages: msgs,
		operator: operatorName,
		logger:   log,
		changes:  make(chan struct{}, 1),
	}, nil
}

// Changes receives once per update. Pending signals are coalesced.
// The channel is closed when Run returns.
func (w *UpdateWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Run delivers signals until ctx is cancelled or the subscription ends.
func (w *UpdateWatcher) Run(ctx context.Context) {
	defer close(w.changes)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.messages:
			if !ok {
				return
			}
			var ev contracts.DashboardUpdated
			if err := msg.DecodeJSON(&ev); err != nil {
				w.logger.Warn("[Watch] %v", err)
				continue
			}
			if ev.Operator != w.operator {
				continue
			}
			w.logger.Debug("[Watch] run %s updated bucket %s", ev.RunID, ev.Bucket)
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// Merge combines signal channels into one. The result is closed once every
// input is closed or ctx is done.
func Merge(ctx context.Context, chs ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, ch := range chs {
		wg.Add(1)
		go func(ch <-chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- struct{}{}:
					default:
					}
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

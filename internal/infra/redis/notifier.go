package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Notifier fans out ranking-changed signals across instances over Redis pub/sub,
// one channel per share code: quiz:{CODE}:ranking.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Publish(ctx context.Context, code string) error {
	return n.client.Publish(ctx, rankingChannel(code), "changed").Err()
}

// Subscribe returns once the subscription is confirmed by Redis, so a publish issued
// after Subscribe returns is never missed.
func (n *Notifier) Subscribe(ctx context.Context, code string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, rankingChannel(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", code, err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	msgs := pubsub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

func rankingChannel(code string) string {
	return "quiz:" + code + ":ranking"
}

package memory

import (
	"context"
	"sync"
)

// Notifier is an in-process implementation of app.RankingNotifier. Each share code
// has a topic that exists only while someone is subscribed to it.
type Notifier struct {
	mu     sync.RWMutex
	topics map[string]map[chan struct{}]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{
		topics: make(map[string]map[chan struct{}]struct{}),
	}
}

// Publish signals every subscriber of code. A subscriber that has not consumed the
// previous signal is skipped: signals coalesce, they do not queue.
func (n *Notifier) Publish(_ context.Context, code string) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.topics[code] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (n *Notifier) Subscribe(_ context.Context, code string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	subs, ok := n.topics[code]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		n.topics[code] = subs
	}
	subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs, ok := n.topics[code]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(n.topics, code)
		}
	}
	return ch, cancel, nil
}

// Topics reports how many share codes currently have subscribers.
func (n *Notifier) Topics() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.topics)
}

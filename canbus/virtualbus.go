package canbus

import (
	"context"
	"sync"
)

// VirtualBus is an in-process broadcast medium: every Send fans out to
// every current subscriber, mirroring how a real CAN bus delivers a
// transmitted frame to every node. Filtering by arbitration ID is each
// subscriber's job, same as on real hardware.
type VirtualBus struct {
	mu   sync.Mutex
	subs map[chan Frame]struct{}
}

func NewVirtualBus() *VirtualBus {
	return &VirtualBus{subs: make(map[chan Frame]struct{})}
}

func (b *VirtualBus) Subscribe(buffer int) (<-chan Frame, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Frame, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (b *VirtualBus) Send(ctx context.Context, f Frame) error {
	padded := f.Padded()

	b.mu.Lock()
	targets := make([]chan Frame, 0, len(b.subs))
	for ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- padded:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// subscriber's inbound buffer is full; drop for that
			// subscriber rather than block the whole bus.
		}
	}
	return nil
}

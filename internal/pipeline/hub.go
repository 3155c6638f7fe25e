package pipeline

import (
	"image"
	"sync"
	"time"
)

// Frame is a rendered output frame. Consumers must treat Image as read-only.
type Frame struct {
	Seq    uint64
	At     time.Time
	Image  *image.RGBA
	Result Result
}

// Hub fans rendered frames out to consumers such as the MJPEG stream, the
// placement websocket and snapshot export. Publish never blocks: a
// subscriber that falls behind only sees the newest frame.
type Hub struct {
	mu     sync.RWMutex
	latest *Frame
	subs   map[uint64]chan *Frame
	nextID uint64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan *Frame)}
}

// Publish stores f as the latest frame and offers it to every subscriber.
func (h *Hub) Publish(f *Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = f
	for _, ch := range h.subs {
		select {
		case ch <- f:
		default:
			// Replace the stale frame.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- f:
			default:
			}
		}
	}
}

// Latest returns the most recently published frame, or nil.
func (h *Hub) Latest() *Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe returns a channel of published frames and a cancel function
// that unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan *Frame, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan *Frame, 1)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Reset forgets the latest frame. Used when the camera stops so consumers
// do not serve a frozen image.
func (h *Hub) Reset() {
	h.mu.Lock()
	h.latest = nil
	h.mu.Unlock()
}

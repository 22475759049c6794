package progress

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EventType names an event on the wire
type EventType string

const (
	EventQueued   EventType = "queued"
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Terminal reports whether no further events follow t
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Event is one update about a download
type Event struct {
	Type        EventType `json:"type"`
	DownloadID  string    `json:"download_id"`
	Kind        string    `json:"kind,omitempty"`
	Percent     float64   `json:"percent,omitempty"`
	Line        string    `json:"line,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	File        string    `json:"file,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// DefaultInterval is the minimum gap between progress events on one topic
const DefaultInterval = 200 * time.Millisecond

const subscriberBuffer = 32

type topic struct {
	last     *Event
	subs     map[chan Event]struct{}
	limiter  *rate.Limiter
	closed   bool
	closedAt time.Time
}

// Hub fans events for each download out to any number of subscribers.
// Late subscribers get the most recent event first. Progress events are
// throttled per download; queued and terminal events are never dropped by
// the throttle.
type Hub struct {
	mu       sync.Mutex
	topics   map[string]*topic
	interval time.Duration
	now      func() time.Time
}

// NewHub creates a hub throttling progress events to one per interval
func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Hub{
		topics:   make(map[string]*topic),
		interval: interval,
		now:      time.Now,
	}
}

// Open registers a download so that it can be subscribed to
func (h *Hub) Open(downloadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[downloadID]; ok {
		return
	}
	h.topics[downloadID] = &topic{
		subs:    make(map[chan Event]struct{}),
		limiter: rate.NewLimiter(rate.Every(h.interval), 1),
	}
}

// Exists reports whether downloadID was opened and not yet forgotten
func (h *Hub) Exists(downloadID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.topics[downloadID]
	return ok
}

// Last returns the most recent event of a download
func (h *Hub) Last(downloadID string) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[downloadID]
	if !ok || t.last == nil {
		return Event{}, false
	}
	return *t.last, true
}

// Publish delivers ev to the subscribers of its download. It reports
// whether the event was delivered rather than throttled or discarded.
func (h *Hub) Publish(ev Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[ev.DownloadID]
	if !ok || t.closed {
		return false
	}
	if ev.Type == EventProgress && !t.limiter.Allow() {
		return false
	}

	t.last = &ev
	for ch := range t.subs {
		if ev.Type.Terminal() {
			sendTerminal(ch, ev)
			close(ch)
			continue
		}
		select {
		case ch <- ev:
		default:
			// slow subscriber, the next event supersedes this one
		}
	}

	if ev.Type.Terminal() {
		t.closed = true
		t.closedAt = h.now()
		t.subs = make(map[chan Event]struct{})
	}
	return true
}

// sendTerminal makes room for ev if the subscriber buffer is full. Only the
// hub sends on ch, and it holds the lock, so one receive frees a slot.
func sendTerminal(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

// Subscribe returns a channel of events for downloadID, starting with the
// last published event. The channel is closed after a terminal event.
// cancel must be called when the subscriber goes away.
func (h *Hub) Subscribe(downloadID string) (events <-chan Event, cancel func(), ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, exists := h.topics[downloadID]
	if !exists {
		return nil, func() {}, false
	}

	ch := make(chan Event, subscriberBuffer)
	if t.last != nil {
		ch <- *t.last
	}
	if t.closed {
		close(ch)
		return ch, func() {}, true
	}

	t.subs[ch] = struct{}{}
	cancel = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, true
}

// Forget drops finished downloads that closed more than maxAge ago and
// returns how many were removed
func (h *Hub) Forget(maxAge time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-maxAge)
	removed := 0
	for id, t := range h.topics {
		if t.closed && t.closedAt.Before(cutoff) {
			delete(h.topics, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of known downloads
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}

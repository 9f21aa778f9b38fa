// Package streaming provides in-memory pub/sub for per-run progress
// events, with a bounded replay ring so a subscriber that connects
// mid-run can catch up.
package streaming

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types emitted over one run's lifetime.
const (
	TypeRunStarted   = "run_started"
	TypeTeamStarted  = "team_started"
	TypeAgentOutcome = "agent_outcome"
	TypeSynthesis    = "synthesis_started"
	TypeRunCompleted = "run_completed"
	TypeRunFailed    = "run_failed"
)

// Event is one progress notification for a run.
type Event struct {
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"`
	Team      string    `json:"team,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Seq       uint64    `json:"seq"`
}

// Marshal renders the event for a websocket frame or log line.
func (e Event) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

const defaultCapacity = 256

// Bus fans run events out to subscribers and keeps a per-run replay
// ring of the most recent events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	history     map[string]*ring
	capacity    int
}

// NewBus builds a bus; capacity <= 0 uses the default ring size.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Bus{
		subscribers: make(map[string]map[chan Event]struct{}),
		history:     make(map[string]*ring),
		capacity:    capacity,
	}
}

// Subscribe registers a buffered channel for one run's events. The
// caller must drain it and call Unsubscribe when done.
func (b *Bus) Subscribe(runID string, buffer int) chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[runID]
	if subs == nil {
		subs = make(map[chan Event]struct{})
		b.subscribers[runID] = subs
	}
	subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subscribers[runID]; ok {
		if _, member := subs[ch]; member {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(b.subscribers, runID)
		}
	}
}

// Publish assigns a sequence number, records the event in the replay
// ring, and delivers it to every subscriber without blocking. Slow
// subscribers lose events; the ring lets them recover.
func (b *Bus) Publish(runID string, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.RunID = runID

	// The lock is held across the fanout so Unsubscribe cannot close
	// a channel mid-send. Sends never block, so hold time is bounded.
	b.mu.Lock()
	defer b.mu.Unlock()

	rg := b.history[runID]
	if rg == nil {
		rg = newRing(b.capacity)
		b.history[runID] = rg
	}
	rg.nextSeq++
	evt.Seq = rg.nextSeq
	rg.push(evt)

	for ch := range b.subscribers[runID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ReplaySince returns buffered events with Seq > since, oldest first.
func (b *Bus) ReplaySince(runID string, since uint64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rg := b.history[runID]
	if rg == nil {
		return nil
	}
	return rg.since(since)
}

// Forget drops a finished run's history and closes any stragglers.
func (b *Bus) Forget(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.history, runID)
	if subs, ok := b.subscribers[runID]; ok {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, runID)
	}
}

// ring is a fixed-capacity event buffer.
type ring struct {
	buf     []Event
	start   int
	count   int
	nextSeq uint64
}

func newRing(capacity int) *ring { return &ring{buf: make([]Event, capacity)} }

func (r *ring) push(e Event) {
	if len(r.buf) == 0 {
		return
	}
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) since(seq uint64) []Event {
	if r.count == 0 {
		return nil
	}
	out := make([]Event, 0, r.count)
	for i := 0; i < r.count; i++ {
		ev := r.buf[(r.start+i)%len(r.buf)]
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

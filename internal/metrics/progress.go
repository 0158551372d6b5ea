package metrics

import "sync"

// ProgressEvent is one snapshot of a running batch computation.
type ProgressEvent struct {
	RunID      string  `json:"run_id"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
	ElapsedSec float64 `json:"elapsed_sec"`
	AvgSec     float64 `json:"avg_sec"`
	ETASec     float64 `json:"eta_sec"`
	Done       bool    `json:"done"`
}

// ProgressHub fans batch progress out to any number of subscribers.
// Slow subscribers drop events rather than stall the batch.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[chan ProgressEvent]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[chan ProgressEvent]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away.
func (h *ProgressHub) Subscribe() (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers without blocking.
func (h *ProgressHub) Publish(ev ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

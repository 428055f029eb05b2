package pipeline

import (
	"sync"

	"github.com/wonny/strawberry/internal/contracts"
)

// EventKind names a run event
type EventKind string

const (
	EventRunStarted  EventKind = "run_started"
	EventTickerDone  EventKind = "ticker_done"
	EventRunFinished EventKind = "run_finished"
)

// Event is published while a run executes
type Event struct {
	Kind   EventKind               `json:"kind"`
	RunID  string                  `json:"run_id"`
	Total  int                     `json:"total,omitempty"`
	Result *contracts.TickerResult `json:"result,omitempty"`
	Report *contracts.RunReport    `json:"report,omitempty"`
}

// Listener receives run events. It is called from worker goroutines and
// must not block.
type Listener func(Event)

type listeners struct {
	mu  sync.RWMutex
	fns []Listener
}

func (l *listeners) add(fn Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fns = append(l.fns, fn)
}

func (l *listeners) publish(ev Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, fn := range l.fns {
		fn(ev)
	}
}

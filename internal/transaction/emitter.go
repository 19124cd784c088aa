package transaction

import (
	"sync"

	"wallet-txcore/pkg/errno"
)

// EventType is an observable milestone of one transaction.
type EventType string

const (
	EventExtrinsicHash EventType = "extrinsicHash"
	EventSuccess       EventType = "success"
	EventError         EventType = "error"
)

// Event is emitted on a transaction's stream. Record is the registry state
// right after the milestone, or the last known state for a removed record.
type Event struct {
	Type          EventType      `json:"type"`
	ID            string         `json:"id"`
	ExtrinsicHash string         `json:"extrinsic_hash,omitempty"`
	Error         *errno.TxError `json:"error,omitempty"`
	Record        Record         `json:"record"`
}

// Emitter is the live event stream of one transaction: an optional
// extrinsicHash event, then exactly one success or error event, after which
// the channel is closed.
type Emitter struct {
	ID     string
	events chan Event

	mu     sync.Mutex
	hashed bool
	closed bool
}

func newEmitter(id string) *Emitter {
	// hash + terminal: sends never block
	return &Emitter{ID: id, events: make(chan Event, 2)}
}

// Events returns the stream.
func (e *Emitter) Events() <-chan Event { return e.events }

func (e *Emitter) extrinsicHash(hash string, rec Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.hashed {
		return
	}
	e.hashed = true
	e.events <- Event{Type: EventExtrinsicHash, ID: e.ID, ExtrinsicHash: hash, Record: rec}
}

func (e *Emitter) success(rec Record) {
	e.finish(Event{Type: EventSuccess, ID: e.ID, ExtrinsicHash: rec.ExtrinsicHash, Record: rec})
}

func (e *Emitter) fail(err *errno.TxError, rec Record) {
	e.finish(Event{Type: EventError, ID: e.ID, ExtrinsicHash: rec.ExtrinsicHash, Error: err, Record: rec})
}

func (e *Emitter) finish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.events <- ev
	close(e.events)
}

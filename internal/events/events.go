// Package events publishes ledger changes to other replicas and listeners.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mmynk/splitsnap/internal/money"
)

// Type names a ledger change.
type Type string

const (
	ReceiptFinalized   Type = "receipt.finalized"
	SettlementRecorded Type = "settlement.recorded"
	MemberAdded        Type = "member.added"
	MemberRemoved      Type = "member.removed"
)

// Event is emitted after a ledger mutation has been committed to the store.
type Event struct {
	Type       Type                   `json:"type"`
	GroupID    string                 `json:"group_id"`
	SubjectID  string                 `json:"subject_id"`
	Balances   map[string]money.Cents `json:"balances,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from every Publish call.
	Err error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

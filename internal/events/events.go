// Package events publishes order lifecycle changes to other systems.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event types.
const (
	TypeOrderSubmitted     = "order.submitted"
	TypeOrderStatusChanged = "order.status_changed"
	TypeStockLow           = "inventory.low_stock"
)

// OrderEvent describes a change to an order or to stock it consumed.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	ItemID     int64     `json:"item_id,omitempty"`
	ItemName   string    `json:"item_name,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Warning    string    `json:"warning,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Publish failures must not fail the request
// that produced the event; callers log them.
type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// LogPublisher writes events to the structured log. It is used when no
// broker is configured.
type LogPublisher struct{}

// Publish implements Publisher.
func (LogPublisher) Publish(ctx context.Context, e OrderEvent) error {
	slog.Info("event", "type", e.Type, "order", e.OrderID, "from", e.From, "to", e.To, "item", e.ItemName)
	return nil
}

// Close implements Publisher.
func (LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []OrderEvent
}

// Publish implements Publisher.
func (r *Recorder) Publish(ctx context.Context, e OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Stamp(e))
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderEvent(nil), r.events...)
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Stamp fills in OccurredAt when it is unset.
func Stamp(e OrderEvent) OrderEvent {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return e
}

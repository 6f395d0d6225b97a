// Package events carries market notifications to whoever is listening: the
// websocket hub in production, a recorder in tests.
package events

import (
	"sync"
	"time"
)

// Topics published by the market.
const (
	TopicPriceUpdate      = "price.update"
	TopicTradeNew         = "trade.new"
	TopicStockNew         = "stock.new"
	TopicDividendReceived = "dividend.received"
)

// Publisher delivers a payload on a topic. Implementations must not block
// the caller and must be safe for concurrent use. Delivery is best effort.
type Publisher interface {
	Publish(topic string, payload any)
}

// Envelope is the wire form of a published event.
type Envelope struct {
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"ts"`
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(string, any) {}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Publisher.
func (r *Recorder) Publish(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{Topic: topic, Payload: payload, Timestamp: time.Now()})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// Topic returns the payloads recorded on one topic, oldest first.
func (r *Recorder) Topic(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.Topic == topic {
			out = append(out, e.Payload)
		}
	}
	return out
}

// Fanout publishes to every wrapped publisher in order.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(topic string, payload any) {
	for _, p := range f {
		p.Publish(topic, payload)
	}
}

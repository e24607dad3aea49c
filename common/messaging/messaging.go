// Package messaging defines the broker-neutral publish/subscribe surface used by
// fwlens to fan out findings and to serve analysis requests from workers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Message is a message received from or sent to a broker.
type Message struct {
	Subject string
	Data    []byte

	// Reply is set on request/reply messages; the handler answers on it.
	Reply string

	Metadata  map[string]string
	Timestamp time.Time
}

// Decode unmarshals the JSON payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s message: %w", m.Subject, err)
	}
	return nil
}

// MessageHandler processes a received message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription represents an active subscription to a subject.
type Subscription interface {
	Unsubscribe() error
	Subject() string
	IsValid() bool
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a fire-and-forget message.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishJSON marshals v and publishes it.
	PublishJSON(ctx context.Context, subject string, v interface{}) error

	// Request sends a message and waits up to timeout for one response.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)
}

// Subscriber subscribes to messages on subjects.
type Subscriber interface {
	// Subscribe delivers every message on subject to handler (fan-out).
	Subscribe(subject string, handler MessageHandler) (Subscription, error)

	// QueueSubscribe load-balances messages across members of queue.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)
}

// Client combines Publisher and Subscriber.
type Client interface {
	Publisher
	Subscriber

	// Drain lets in-flight messages complete, then closes the connection.
	Drain() error
	Close() error
	IsConnected() bool
}

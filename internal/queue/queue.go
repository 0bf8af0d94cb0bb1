package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrFull is returned by InMemory when nobody drains it fast enough.
var ErrFull = errors.New("queue full")

// Message represents work to be processed.
type Message struct {
	Type string
	Body []byte
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	// Consume streams messages until ctx ends, then closes the channel.
	Consume(ctx context.Context) (<-chan Message, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend      string // memory, redis, nats or kafka
	Size         int
	Key          string // redis list, nats subject or kafka topic
	Redis        *redis.Client
	NATSURL      string
	KafkaBrokers []string
	KafkaGroup   string
}

// Open builds the queue named by opts.Backend.
func Open(opts Options, log *slog.Logger) (Queue, error) {
	switch opts.Backend {
	case "", "memory":
		size := opts.Size
		if size <= 0 {
			size = 64
		}
		return NewInMemory(size), nil
	case "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("queue: redis backend needs a client")
		}
		return NewRedisQueue(opts.Redis, opts.Key), nil
	case "nats":
		return NewNATSQueue(opts.NATSURL, opts.Key, log)
	case "kafka":
		return NewKafkaQueue(opts.KafkaBrokers, opts.Key, opts.KafkaGroup, log)
	default:
		return nil, fmt.Errorf("queue: unknown backend %q", opts.Backend)
	}
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message. It never waits: a full buffer returns ErrFull.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (q *InMemory) Close() error { return nil }

// encode stores messages as Type|Body for backends without headers.
func encode(msg Message) []byte {
	return append([]byte(msg.Type+"|"), msg.Body...)
}

func decode(b []byte) Message {
	typ, body, ok := strings.Cut(string(b), "|")
	if !ok {
		return Message{Body: b}
	}
	return Message{Type: typ, Body: []byte(body)}
}

package queue

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSQueue publishes to and subscribes on one subject.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewNATSQueue(url, subject string, logger *slog.Logger) (*NATSQueue, error) {
	if subject == "" {
		subject = defaultKey
	}
	nc, err := nats.Connect(url, nats.Name("classcaptain"))
	if err != nil {
		return nil, err
	}

	logger.Info("NATS queue initialized", "url", url, "subject", subject)

	return &NATSQueue{conn: nc, subject: subject, logger: logger}, nil
}

func (q *NATSQueue) Publish(_ context.Context, msg Message) error {
	if err := q.conn.Publish(q.subject, encode(msg)); err != nil {
		q.logger.Error("failed to send message to NATS", "error", err)
		return err
	}
	return nil
}

func (q *NATSQueue) Consume(ctx context.Context) (<-chan Message, error) {
	in := make(chan *nats.Msg, 64)
	sub, err := q.conn.ChanSubscribe(q.subject, in)
	if err != nil {
		return nil, err
	}
	q.logger.Info("NATS consumer started", "subject", q.subject)

	out := make(chan Message)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case m := <-in:
				select {
				case out <- decode(m.Data):
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

func (q *NATSQueue) Close() error {
	q.conn.Close()
	return nil
}

// HealthCheck verifies NATS connection is healthy
func (q *NATSQueue) HealthCheck() error {
	if q.conn == nil {
		return nats.ErrConnectionClosed
	}
	if !q.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}

package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"
)

const defaultGroup = "classcaptain-worker"

// KafkaQueue publishes with a sync producer and consumes with a consumer group.
// The message type travels as the record key.
type KafkaQueue struct {
	producer sarama.SyncProducer
	brokers  []string
	topic    string
	group    string
	logger   *slog.Logger

	newGroup func(brokers []string, group string, cfg *sarama.Config) (sarama.ConsumerGroup, error)
	consumer sarama.ConsumerGroup
}

func NewKafkaQueue(brokers []string, topic, group string, logger *slog.Logger) (*KafkaQueue, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	q := newKafkaQueue(producer, brokers, topic, group, logger)
	logger.Info("kafka queue initialized", "brokers", brokers, "topic", q.topic)
	return q, nil
}

func newKafkaQueue(producer sarama.SyncProducer, brokers []string, topic, group string, logger *slog.Logger) *KafkaQueue {
	if topic == "" {
		topic = "classcaptain.unsynced"
	}
	if group == "" {
		group = defaultGroup
	}
	return &KafkaQueue{
		producer: producer,
		brokers:  brokers,
		topic:    topic,
		group:    group,
		logger:   logger,
		newGroup: sarama.NewConsumerGroup,
	}
}

func (q *KafkaQueue) Publish(_ context.Context, msg Message) error {
	partition, offset, err := q.producer.SendMessage(&sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(msg.Type),
		Value: sarama.ByteEncoder(msg.Body),
	})
	if err != nil {
		q.logger.Error("failed to send message to kafka", "error", err)
		return err
	}
	q.logger.Debug("message sent to kafka", "topic", q.topic, "partition", partition, "offset", offset)
	return nil
}

func (q *KafkaQueue) Consume(ctx context.Context) (<-chan Message, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := q.newGroup(q.brokers, q.group, config)
	if err != nil {
		return nil, err
	}
	q.consumer = group

	out := make(chan Message)
	handler := &groupHandler{out: out}
	go func() {
		defer close(out)
		for {
			if err := group.Consume(ctx, []string{q.topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				q.logger.Error("error consuming messages", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return out, nil
}

func (q *KafkaQueue) Close() error {
	var errs []error
	if q.consumer != nil {
		errs = append(errs, q.consumer.Close())
	}
	errs = append(errs, q.producer.Close())
	return errors.Join(errs...)
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	out chan<- Message
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		select {
		case h.out <- Message{Type: string(msg.Key), Body: msg.Value}:
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
	return nil
}

package kafka

import (
	"context"
	"fmt"
	"time"

	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/service/interfaces"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const deliveryTimeout = 10 * time.Second

// ProducerInterface is the part of *kafka.Producer the publisher needs.
type ProducerInterface interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

type KafkaProducer struct {
	producer ProducerInterface
	topic    string
}

var _ interfaces.KafkaPublisher = (*KafkaProducer)(nil)

func NewKafkaProducer(cfg config.KafkaConfig) (*KafkaProducer, error) {
	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers": cfg.Server,
		"security.protocol": cfg.SecurityProtocol,
		"sasl.mechanisms":   cfg.SASLMechanism,
		"sasl.username":     cfg.SASLUsername,
		"sasl.password":     cfg.SASLPassword,
		"client.id":         cfg.ClientID,
		"acks":              "all",
	}

	producer, err := kafka.NewProducer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	logger.Info(log_messages.KafkaProducerCreated, zap.String("topic", cfg.AuditTopic))

	return NewKafkaProducerWithProducer(producer, cfg.AuditTopic), nil
}

func NewKafkaProducerWithProducer(producer ProducerInterface, topic string) *KafkaProducer {
	return &KafkaProducer{producer: producer, topic: topic}
}

// Publish blocks until the broker acknowledges the message, the delivery
// timeout passes, or ctx is done. Messages with the same key keep their order.
func (kp *KafkaProducer) Publish(ctx context.Context, key string, msg []byte) error {
	deliveryChan := make(chan kafka.Event, 1)

	err := kp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &kp.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          msg,
	}, deliveryChan)
	if err != nil {
		logger.CtxError(ctx, "Failed to produce Kafka message", err)
		return err
	}

	select {
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
	case <-time.After(deliveryTimeout):
		return fmt.Errorf("timeout waiting for Kafka delivery report")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (kp *KafkaProducer) Close() error {
	kp.producer.Flush(5000)
	kp.producer.Close()
	return nil
}

package pubsub

import (
	"context"

	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/service/interfaces"

	"cloud.google.com/go/pubsub/v2"
	"go.uber.org/zap"
)

// PubSubPublisher publishes member notifications to one topic.
type PubSubPublisher struct {
	PubSubClient interfaces.PubSubPublisherClientInterface
	topic        string
	publisher    interfaces.PublisherInterface
}

var _ interfaces.NotificationPublisher = (*PubSubPublisher)(nil)

type PubSubPublisherClientFactory interface {
	NewPubSubPublisherClient(ctx context.Context, projectID string) (interfaces.PubSubPublisherClientInterface, error)
}

type defaultPubSubPublisherClientFactory struct{}

func (f *defaultPubSubPublisherClientFactory) NewPubSubPublisherClient(ctx context.Context,
	projectID string) (interfaces.PubSubPublisherClientInterface, error) {
	sdkClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &pubSubPublisherClientAdapter{client: sdkClient}, nil
}

type pubSubPublisherClientAdapter struct {
	client *pubsub.Client
}

func (c *pubSubPublisherClientAdapter) Publisher(topic string) interfaces.PublisherInterface {
	return &publisherAdapter{publisher: c.client.Publisher(topic)}
}

func (c *pubSubPublisherClientAdapter) Close() error {
	return c.client.Close()
}

type publisherAdapter struct {
	publisher *pubsub.Publisher
}

func (p *publisherAdapter) Publish(ctx context.Context, msg []byte, attributes map[string]string) (string, error) {
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       msg,
		Attributes: attributes,
	})
	return result.Get(ctx)
}

// NewPubSubPublisher is a variable so tests can replace it.
var NewPubSubPublisher = func(ctx context.Context, projectID, topic string) (*PubSubPublisher, error) {
	return NewPubSubPublisherWithFactory(ctx, projectID, topic, &defaultPubSubPublisherClientFactory{})
}

func NewPubSubPublisherWithFactory(ctx context.Context, projectID, topic string,
	factory PubSubPublisherClientFactory) (*PubSubPublisher, error) {
	client, err := factory.NewPubSubPublisherClient(ctx, projectID)
	if err != nil {
		logger.CtxError(ctx, "Failed creating PubSub client", err)
		return nil, err
	}
	logger.CtxInfo(ctx, log_messages.PubsubPublisherCreated, zap.String("topic", topic))

	return &PubSubPublisher{
		PubSubClient: client,
		topic:        topic,
		publisher:    client.Publisher(topic),
	}, nil
}

// Publish waits for the server to assign a message id.
func (p *PubSubPublisher) Publish(ctx context.Context, msg []byte, attributes map[string]string) error {
	id, err := p.publisher.Publish(ctx, msg, attributes)
	if err != nil {
		return err
	}
	logger.CtxDebug(ctx, "Published notification", zap.String("topic", p.topic), zap.String("messageId", id))
	return nil
}

func (p *PubSubPublisher) Close() error {
	return p.PubSubClient.Close()
}

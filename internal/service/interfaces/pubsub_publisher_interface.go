package interfaces

import "context"

type PublisherInterface interface {
	Publish(ctx context.Context, msg []byte, attributes map[string]string) (string, error)
}

type PubSubPublisherClientInterface interface {
	Publisher(topic string) PublisherInterface
	Close() error
}

type NotificationPublisher interface {
	Publish(ctx context.Context, msg []byte, attributes map[string]string) error
}

package interfaces

import "context"

type KafkaPublisher interface {
	Publish(ctx context.Context, key string, msg []byte) error
}

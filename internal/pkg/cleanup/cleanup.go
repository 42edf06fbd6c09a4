package cleanup

import (
	"context"
	"net/http"
	"time"

	"sacco-ledger/internal/pkg/db/mongo"
	"sacco-ledger/internal/pkg/db/redis"
	"sacco-ledger/internal/pkg/gcs"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
)

// Resources are released in reverse dependency order: the HTTP server first, then the sinks, then storage.
type Resources struct {
	Server          *http.Server
	PubSubPublisher interface{ Close() error }
	KafkaProducer   interface{ Close() error }
	MongoClient     *mongo.MongoClient
	RedisClient     *redis.RedisClient
	GCSClient       gcs.GcsInterface
	TracerShutdown  func(context.Context) error
}

func CleanupResources(ctx context.Context, res Resources) {
	logger.CtxInfo(ctx, log_messages.CleanupStarted)

	cleanupHTTPServer(ctx, res.Server)
	closeResource(ctx, res.PubSubPublisher, "PubSub publisher")
	closeResource(ctx, res.KafkaProducer, "Kafka producer")
	cleanupGCSResource(ctx, res.GCSClient)
	cleanupMongoResource(ctx, res.MongoClient)
	cleanupRedisResource(ctx, res.RedisClient)
	cleanupTracer(ctx, res.TracerShutdown)

	logger.CtxInfo(ctx, log_messages.CleanupCompleted)
}

func closeResource(ctx context.Context, resource interface{ Close() error }, resourceName string) {
	if resource == nil {
		return
	}
	if err := resource.Close(); err != nil {
		logger.CtxError(ctx, "Failed to close "+resourceName, err)
	} else {
		logger.CtxInfo(ctx, resourceName+" closed successfully")
	}
}

func cleanupMongoResource(ctx context.Context, mongoClient *mongo.MongoClient) {
	if mongoClient == nil || mongoClient.Client == nil {
		return
	}
	mongoCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Client.Disconnect(mongoCtx); err != nil {
		logger.CtxError(mongoCtx, "Failed to disconnect MongoDB client", err)
	} else {
		logger.CtxInfo(mongoCtx, "MongoDB client disconnected successfully")
	}
}

func cleanupRedisResource(ctx context.Context, redisClient *redis.RedisClient) {
	if redisClient == nil || redisClient.Client == nil {
		return
	}
	if err := redis.Disconnect(redisClient.Client); err != nil {
		logger.CtxError(ctx, "Failed to close Redis client", err)
	} else {
		logger.CtxInfo(ctx, "Redis client closed successfully")
	}
}

func cleanupHTTPServer(ctx context.Context, server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.CtxError(ctx, "Failed to shutdown HTTP server", err)
	} else {
		logger.CtxInfo(ctx, "HTTP server shutdown successfully")
	}
}

func cleanupGCSResource(ctx context.Context, gcsClient gcs.GcsInterface) {
	if gcsClient == nil {
		return
	}
	gcsClient.Close(ctx)
	logger.CtxInfo(ctx, log_messages.GCSClientClosedSuccessfully)
}

func cleanupTracer(ctx context.Context, shutdown func(context.Context) error) {
	if shutdown == nil {
		return
	}
	if err := shutdown(ctx); err != nil {
		logger.CtxError(ctx, "Failed to shutdown tracer provider", err)
	}
}

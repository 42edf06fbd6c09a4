package repository

import (
	"context"

	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository[T any] struct {
	collection interfaces.MongoRepositoryInterface
}

var _ interfaces.MongoStore[struct{}] = (*MongoRepository[struct{}])(nil)

func NewMongoRepository[T any](collection interfaces.MongoRepositoryInterface) *MongoRepository[T] {
	return &MongoRepository[T]{collection: collection}
}

func (r *MongoRepository[T]) Create(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error) {
	return r.collection.InsertOne(ctx, document)
}

// FindOne decodes the first match. mongo.ErrNoDocuments is returned unchanged.
func (r *MongoRepository[T]) FindOne(ctx context.Context, filter interface{}, opt *options.FindOneOptions) (T, error) {
	var result T

	if opt == nil {
		opt = options.FindOne()
	}
	if err := r.collection.FindOne(ctx, filter, opt).Decode(&result); err != nil {
		return result, err
	}

	return result, nil
}

func (r *MongoRepository[T]) Find(ctx context.Context, filter interface{}, opt *options.FindOptions) ([]T, error) {
	if opt == nil {
		opt = options.Find()
	}

	cursor, err := r.collection.Find(ctx, filter, opt)
	if err != nil {
		return nil, err
	}
	defer closeCursor(ctx, cursor)

	results := make([]T, 0)
	for cursor.Next(ctx) {
		var entity T
		if err := cursor.Decode(&entity); err != nil {
			logger.CtxError(ctx, log_messages.ErrorDecodingDocument, err)
			return nil, err
		}
		results = append(results, entity)
	}
	return results, cursor.Err()
}

// UpdateOne sends update as given, so callers choose the operators.
func (r *MongoRepository[T]) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return r.collection.UpdateOne(ctx, filter, update)
}

func (r *MongoRepository[T]) UpdateMany(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return r.collection.UpdateMany(ctx, filter, update)
}

func (r *MongoRepository[T]) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return r.collection.CountDocuments(ctx, filter)
}

func (r *MongoRepository[T]) AggregateAll(ctx context.Context, pipeline interface{}, result interface{}) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer closeCursor(ctx, cursor)

	return cursor.All(ctx, result)
}

func closeCursor(ctx context.Context, cursor *mongo.Cursor) {
	if err := cursor.Close(ctx); err != nil {
		logger.CtxWarn(ctx, log_messages.ErrorClosingCursor)
	}
}

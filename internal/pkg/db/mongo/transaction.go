package mongo

import (
	"context"
	"fmt"

	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs a callback inside one MongoDB multi-document transaction.
// Repositories pick the session up from the callback context.
type TxRunner struct {
	client *mongo.Client
}

func NewTxRunner(client *MongoClient) *TxRunner {
	return &TxRunner{client: client.Client}
}

// Do commits every write made through ctx in fn, or none of them.
// A call made while a session is already bound to ctx joins it.
func (r *TxRunner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		logger.CtxError(ctx, log_messages.TransactionStartFailed, err)
		return fmt.Errorf("failed to start MongoDB session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

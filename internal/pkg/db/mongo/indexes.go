package mongo

import (
	"context"
	"fmt"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// collectionIndexes back the uniqueness rules the services rely on:
// one wallet per member, unique journal references and tracking ids,
// one invitation per email per loan.
var collectionIndexes = map[string][]mongo.IndexModel{
	consts.MembersCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	consts.WalletsCollection: {
		{Keys: bson.D{{Key: "memberId", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	consts.TransactionsCollection: {
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "trackingId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"trackingId": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "walletId", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
	consts.LoansCollection: {
		{Keys: bson.D{{Key: "borrowerId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "dueDate", Value: 1}}},
	},
	consts.GuarantorsCollection: {
		{Keys: bson.D{{Key: "loanId", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "guarantorId", Value: 1}, {Key: "status", Value: 1}}},
	},
	consts.WithdrawalsCollection: {
		{Keys: bson.D{{Key: "requesterId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	},
	consts.WelfareClaimsCollection: {
		{Keys: bson.D{{Key: "memberId", Value: 1}}},
	},
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, indexes := range collectionIndexes {
		created, err := db.Collection(name).Indexes().CreateMany(ctx, indexes)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
		logger.CtxDebug(ctx, "Indexes ensured", zap.String("collection", name), zap.Strings("indexes", created))
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type testWallet struct {
	Owner   string `bson:"owner"`
	Savings int64  `bson:"savings"`
}

type MockMongoCollection struct {
	mock.Mock
}

func (m *MockMongoCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	args := m.Called(ctx, document)
	return args.Get(0).(*mongo.InsertOneResult), args.Error(1)
}

func (m *MockMongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	args := m.Called(ctx, filter)
	return args.Get(0).(*mongo.SingleResult)
}

func (m *MockMongoCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	args := m.Called(ctx, pipeline)
	return args.Get(0).(*mongo.Cursor), args.Error(1)
}

func (m *MockMongoCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := m.Called(ctx, filter, update)
	return args.Get(0).(*mongo.UpdateResult), args.Error(1)
}

func (m *MockMongoCollection) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := m.Called(ctx, filter, update)
	return args.Get(0).(*mongo.UpdateResult), args.Error(1)
}

func (m *MockMongoCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(*mongo.DeleteResult), args.Error(1)
}

func (m *MockMongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(*mongo.Cursor), args.Error(1)
}

func (m *MockMongoCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func TestCreate(t *testing.T) {
	coll := new(MockMongoCollection)
	repo := NewMongoRepository[testWallet](coll)
	doc := testWallet{Owner: "wanjiku", Savings: 5000}
	expected := &mongo.InsertOneResult{InsertedID: "id-1"}

	coll.On("InsertOne", mock.Anything, doc).Return(expected, nil)

	result, err := repo.Create(context.Background(), doc)

	assert.NoError(t, err)
	assert.Equal(t, expected, result)
	coll.AssertExpectations(t)
}

func TestUpdateOnePassesOperatorsThrough(t *testing.T) {
	coll := new(MockMongoCollection)
	repo := NewMongoRepository[testWallet](coll)
	filter := bson.M{"owner": "wanjiku", "version": int64(3)}
	update := bson.M{"$inc": bson.M{"savings": int64(100), "version": int64(1)}}

	coll.On("UpdateOne", mock.Anything, filter, update).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	result, err := repo.UpdateOne(context.Background(), filter, update)

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.MatchedCount)
	coll.AssertExpectations(t)
}

func TestUpdateMany(t *testing.T) {
	coll := new(MockMongoCollection)
	repo := NewMongoRepository[testWallet](coll)
	filter := bson.M{"owner": "x"}
	update := bson.M{"$set": bson.M{"savings": 0}}

	coll.On("UpdateMany", mock.Anything, filter, update).Return(&mongo.UpdateResult{ModifiedCount: 2}, errors.New("boom"))

	_, err := repo.UpdateMany(context.Background(), filter, update)

	assert.EqualError(t, err, "boom")
}

func TestCountDocuments(t *testing.T) {
	coll := new(MockMongoCollection)
	repo := NewMongoRepository[testWallet](coll)

	coll.On("CountDocuments", mock.Anything, bson.M{}).Return(int64(4), nil)

	count, err := repo.CountDocuments(context.Background(), bson.M{})

	assert.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestFindAndFindOne(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find decodes every document", func(mt *mtest.T) {
		repo := NewMongoRepository[testWallet](mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "owner", Value: "a"}, {Key: "savings", Value: int64(10)}},
			bson.D{{Key: "owner", Value: "b"}, {Key: "savings", Value: int64(20)}},
		))

		results, err := repo.Find(context.Background(), bson.M{}, nil)

		require.NoError(mt, err)
		assert.Equal(mt, []testWallet{{Owner: "a", Savings: 10}, {Owner: "b", Savings: 20}}, results)
	})

	mt.Run("find returns empty slice", func(mt *mtest.T) {
		repo := NewMongoRepository[testWallet](mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		results, err := repo.Find(context.Background(), bson.M{}, options.Find().SetLimit(5))

		require.NoError(mt, err)
		assert.NotNil(mt, results)
		assert.Empty(mt, results)
	})

	mt.Run("find one no documents", func(mt *mtest.T) {
		repo := NewMongoRepository[testWallet](mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindOne(context.Background(), bson.M{"owner": "nobody"}, nil)

		assert.ErrorIs(mt, err, mongo.ErrNoDocuments)
	})

	mt.Run("aggregate all", func(mt *mtest.T) {
		repo := NewMongoRepository[testWallet](mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: nil}, {Key: "total", Value: int64(300)}},
		))

		var out []struct {
			Total int64 `bson:"total"`
		}
		err := repo.AggregateAll(context.Background(), mongo.Pipeline{}, &out)

		require.NoError(mt, err)
		require.Len(mt, out, 1)
		assert.Equal(mt, int64(300), out[0].Total)
	})

	mt.Run("find command error", func(mt *mtest.T) {
		repo := NewMongoRepository[testWallet](mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Message: "bad filter", Name: "BadValue",
		}))

		_, err := repo.Find(context.Background(), bson.M{"$bad": 1}, nil)

		assert.Error(mt, err)
	})
}

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockKafkaPublisher struct {
	mock.Mock
}

func (m *MockKafkaPublisher) Publish(ctx context.Context, key string, msg []byte) error {
	args := m.Called(ctx, key, msg)
	return args.Error(0)
}

func TestKafkaSinkEmit(t *testing.T) {
	actor := models.Actor{MemberID: primitive.NewObjectID(), Role: models.RoleTreasurer}
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	producer := &MockKafkaPublisher{}
	var published []byte
	producer.On("Publish", mock.Anything, "loan-1", mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil).Once()

	sink := NewKafkaSink(producer)
	sink.now = func() time.Time { return at }
	ctx := logger.WithTraceID(context.Background(), "trace-123")

	sink.Emit(ctx, models.NewAuditEvent(actor, "LOAN_DISBURSED", "LOAN", "loan-1",
		map[string]interface{}{"principal": 4000000}))

	producer.AssertExpectations(t)
	var got models.AuditEvent
	require.NoError(t, json.Unmarshal(published, &got))
	assert.Equal(t, actor.MemberID.Hex(), got.ActorID)
	assert.Equal(t, models.RoleTreasurer, got.Role)
	assert.Equal(t, "LOAN_DISBURSED", got.Action)
	assert.Equal(t, "trace-123", got.TraceID)
	assert.True(t, at.Equal(got.OccurredAt))
}

func TestKafkaSinkEmitSwallowsPublishError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(zap.NewNop())

	producer := &MockKafkaPublisher{}
	producer.On("Publish", mock.Anything, "w-1", mock.Anything).Return(errors.New("broker down"))

	NewKafkaSink(producer).Emit(context.Background(), models.AuditEvent{Action: "WITHDRAWAL_DISBURSED", EntityID: "w-1"})

	producer.AssertExpectations(t)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "broker down", logs.All()[0].ContextMap()["error"])
}

func TestNewAuditEventSystemActor(t *testing.T) {
	event := models.NewAuditEvent(models.Actor{}, "LOAN_PENALIZED", "LOAN", "l-1", nil)
	assert.Empty(t, event.ActorID)
	assert.Empty(t, event.Role)
}

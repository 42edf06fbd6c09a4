package notification

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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockNotificationPublisher struct {
	mock.Mock
}

func (m *MockNotificationPublisher) Publish(ctx context.Context, msg []byte, attributes map[string]string) error {
	args := m.Called(ctx, msg, attributes)
	return args.Error(0)
}

func TestNotify(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	publisher := &MockNotificationPublisher{}
	var payload []byte
	publisher.On("Publish", mock.Anything, mock.Anything, map[string]string{"event": models.EventGuarantorInvited}).
		Run(func(args mock.Arguments) { payload = args.Get(1).([]byte) }).
		Return(nil).Once()

	svc := NewNotificationService(publisher)
	svc.now = func() time.Time { return at }
	svc.Notify(context.Background(), models.NotificationMessage{
		Event:      models.EventGuarantorInvited,
		Email:      "g@sacco.test",
		Parameters: map[string]string{"amount": "KES 40,000.00"},
	})

	publisher.AssertExpectations(t)
	var got models.NotificationMessage
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "g@sacco.test", got.Email)
	assert.Equal(t, "KES 40,000.00", got.Parameters["amount"])
	assert.True(t, at.Equal(got.PublishedAt))
}

func TestNotifyLogsPublishFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(zap.NewNop())

	publisher := &MockNotificationPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("topic not found"))

	NewNotificationService(publisher).Notify(context.Background(), models.NotificationMessage{Event: models.EventDepositReceived})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, models.EventDepositReceived, logs.All()[0].ContextMap()["event"])
}

package pubsub

import (
	"context"
	"errors"
	"testing"

	"sacco-ledger/internal/service/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPubSubPublisherClient struct {
	publishers  map[string]*mockPublisher
	closeCalled bool
}

func (m *mockPubSubPublisherClient) Publisher(topic string) interfaces.PublisherInterface {
	if m.publishers == nil {
		m.publishers = make(map[string]*mockPublisher)
	}
	if _, ok := m.publishers[topic]; !ok {
		m.publishers[topic] = &mockPublisher{}
	}
	return m.publishers[topic]
}

func (m *mockPubSubPublisherClient) Close() error {
	m.closeCalled = true
	return nil
}

type mockPublisher struct {
	msg          []byte
	attributes   map[string]string
	publishError error
}

func (m *mockPublisher) Publish(ctx context.Context, msg []byte, attributes map[string]string) (string, error) {
	m.msg = msg
	m.attributes = attributes
	return "msg-1", m.publishError
}

type mockPublisherFactory struct {
	client interfaces.PubSubPublisherClientInterface
	err    error
}

func (m *mockPublisherFactory) NewPubSubPublisherClient(ctx context.Context, projectID string) (interfaces.PubSubPublisherClientInterface, error) {
	return m.client, m.err
}

func TestNewPubSubPublisherWithFactory(t *testing.T) {
	t.Run("success binds the topic", func(t *testing.T) {
		client := &mockPubSubPublisherClient{}

		publisher, err := NewPubSubPublisherWithFactory(context.Background(), "sacco-project", "sacco-notifications",
			&mockPublisherFactory{client: client})

		require.NoError(t, err)
		assert.Equal(t, client, publisher.PubSubClient)
		assert.Contains(t, client.publishers, "sacco-notifications")
	})

	t.Run("factory error", func(t *testing.T) {
		publisher, err := NewPubSubPublisherWithFactory(context.Background(), "p", "t",
			&mockPublisherFactory{err: errors.New("no credentials")})

		assert.EqualError(t, err, "no credentials")
		assert.Nil(t, publisher)
	})
}

func TestPubSubPublisherPublish(t *testing.T) {
	client := &mockPubSubPublisherClient{}
	publisher, err := NewPubSubPublisherWithFactory(context.Background(), "p", "sacco-notifications",
		&mockPublisherFactory{client: client})
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), []byte(`{"event":"GUARANTOR_INVITED"}`), map[string]string{"event": "GUARANTOR_INVITED"})

	require.NoError(t, err)
	sent := client.publishers["sacco-notifications"]
	assert.JSONEq(t, `{"event":"GUARANTOR_INVITED"}`, string(sent.msg))
	assert.Equal(t, "GUARANTOR_INVITED", sent.attributes["event"])

	sent.publishError = errors.New("publish error")
	assert.EqualError(t, publisher.Publish(context.Background(), nil, nil), "publish error")
}

func TestPubSubPublisherClose(t *testing.T) {
	client := &mockPubSubPublisherClient{}
	publisher := &PubSubPublisher{PubSubClient: client}

	require.NoError(t, publisher.Close())
	assert.True(t, client.closeCalled)
}

func TestNewPubSubPublisherOverride(t *testing.T) {
	orig := NewPubSubPublisher
	defer func() { NewPubSubPublisher = orig }()
	called := false
	NewPubSubPublisher = func(ctx context.Context, projectID, topic string) (*PubSubPublisher, error) {
		called = true
		return &PubSubPublisher{}, nil
	}

	_, err := NewPubSubPublisher(context.Background(), "p", "t")

	require.NoError(t, err)
	assert.True(t, called)
}

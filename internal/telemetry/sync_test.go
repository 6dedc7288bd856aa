package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *publisherMock) Close() error {
	return m.Called().Error(0)
}

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(publisherMock)
	emitter := NewSyncEmitter(publisher, "client_events.sync", "messenger-client", "test")

	var got SyncEnvelope
	publisher.On("Publish", mock.Anything, "client_events.sync", mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(2).(SyncEnvelope)
	}).Return(nil).Once()

	emitter.Emit(context.Background(), "login", "user alice logged in", "s1")

	publisher.AssertExpectations(t)
	assert.Equal(t, 1, got.SchemaVersion)
	assert.Equal(t, "client_sync", got.EventType)
	assert.Equal(t, "messenger-client", got.Service)
	assert.Equal(t, "test", got.Environment)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "login", got.Payload.Kind)
	require.NotEmpty(t, got.OccurredAt)
}

func TestEmitNilSafe(t *testing.T) {
	var emitter *SyncEmitter
	emitter.Emit(context.Background(), "login", "ignored", "")

	emitter = NewSyncEmitter(nil, "rk", "svc", "env")
	emitter.Emit(context.Background(), "login", "ignored", "")
}

func TestEmitSwallowsPublishError(t *testing.T) {
	publisher := new(publisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	emitter := NewSyncEmitter(publisher, "rk", "svc", "env")
	emitter.Emit(context.Background(), "login", "text", "s1")

	publisher.AssertExpectations(t)
}

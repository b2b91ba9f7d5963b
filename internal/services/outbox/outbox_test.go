package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *RepoMock) ClaimPendingEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OutboxEvent), args.Error(1)
}

func (m *RepoMock) MarkOutboxPublished(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) GetOutboxEvent(ctx context.Context, id int64) (*models.OutboxEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OutboxEvent), args.Error(1)
}

func (m *RepoMock) MarkOutboxProcessed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) RecordOutboxFailure(ctx context.Context, id int64, errMsg string, maxAttempts int) (models.OutboxStatus, error) {
	args := m.Called(ctx, id, errMsg, maxAttempts)
	return args.Get(0).(models.OutboxStatus), args.Error(1)
}

func (m *RepoMock) ListOutboxEvents(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.OutboxEvent, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OutboxEvent), args.Error(1)
}

func (m *RepoMock) ResetOutboxEvent(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

type ActivatorMock struct{ mock.Mock }

func (m *ActivatorMock) Activate(ctx context.Context, userID, planID int64, source string) (*models.MembershipInfo, error) {
	args := m.Called(ctx, userID, planID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MembershipInfo), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var testCfg = config.Outbox{BatchSize: 10, MaxAttempts: 3}

func activationEvent(id int64, status models.OutboxStatus) *models.OutboxEvent {
	payload, _ := json.Marshal(models.MembershipActivatePayload{OrderID: 1, UserID: 7, PlanID: 3})
	return &models.OutboxEvent{ID: id, EventType: models.EventMembershipActivate, Payload: payload, Status: status}
}

func message(t *testing.T, id int64) []byte {
	t.Helper()
	body, err := json.Marshal(models.OutboxMessage{EventID: id, EventType: models.EventMembershipActivate})
	require.NoError(t, err)
	return body
}

func TestRelay(t *testing.T) {
	t.Run("publishes and marks batch", func(t *testing.T) {
		repo, pub := new(RepoMock), new(PublisherMock)
		repo.On("ClaimPendingEvents", mock.Anything, 10).Return([]*models.OutboxEvent{
			activationEvent(1, models.OutboxPending), activationEvent(2, models.OutboxPending),
		}, nil).Once()
		pub.On("Publish", models.EventMembershipActivate, mock.AnythingOfType("models.OutboxMessage")).Return(nil).Twice()
		repo.On("MarkOutboxPublished", mock.Anything, int64(1)).Return(nil).Once()
		repo.On("MarkOutboxPublished", mock.Anything, int64(2)).Return(nil).Once()

		n, err := NewOutboxService(repo, testCfg, newNoopLogger()).Relay(context.Background(), pub)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("publish failure stops batch", func(t *testing.T) {
		repo, pub := new(RepoMock), new(PublisherMock)
		repo.On("ClaimPendingEvents", mock.Anything, 10).Return([]*models.OutboxEvent{
			activationEvent(1, models.OutboxPending), activationEvent(2, models.OutboxPending),
		}, nil).Once()
		pub.On("Publish", models.EventMembershipActivate, mock.Anything).Return(nil).Once()
		pub.On("Publish", models.EventMembershipActivate, mock.Anything).Return(errors.New("channel closed")).Once()
		repo.On("MarkOutboxPublished", mock.Anything, int64(1)).Return(nil).Once()

		n, err := NewOutboxService(repo, testCfg, newNoopLogger()).Relay(context.Background(), pub)
		require.Error(t, err)
		assert.Equal(t, 1, n)
		repo.AssertNotCalled(t, "MarkOutboxPublished", mock.Anything, int64(2))
	})
}

func TestActivationHandler(t *testing.T) {
	tests := []struct {
		name        string
		event       *models.OutboxEvent
		activateErr error
		failStatus  models.OutboxStatus
		wantErr     bool
		wantCalls   bool
	}{
		{name: "activates and marks processed", event: activationEvent(5, models.OutboxPublished), wantCalls: true},
		{name: "already processed skipped", event: activationEvent(5, models.OutboxProcessed)},
		{name: "failed event skipped", event: activationEvent(5, models.OutboxFailed)},
		{
			name: "failure requeued", event: activationEvent(5, models.OutboxPublished),
			activateErr: models.ErrNotFound, failStatus: models.OutboxPublished, wantErr: true, wantCalls: true,
		},
		{
			name: "attempts exhausted acked", event: activationEvent(5, models.OutboxPublished),
			activateErr: models.ErrNotFound, failStatus: models.OutboxFailed, wantCalls: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, act := new(RepoMock), new(ActivatorMock)
			repo.On("GetOutboxEvent", mock.Anything, int64(5)).Return(tt.event, nil).Once()
			if tt.wantCalls {
				if tt.activateErr == nil {
					act.On("Activate", mock.Anything, int64(7), int64(3), "order").Return(&models.MembershipInfo{}, nil).Once()
					repo.On("MarkOutboxProcessed", mock.Anything, int64(5)).Return(nil).Once()
				} else {
					act.On("Activate", mock.Anything, int64(7), int64(3), "order").Return(nil, tt.activateErr).Once()
					repo.On("RecordOutboxFailure", mock.Anything, int64(5), mock.Anything, 3).Return(tt.failStatus, nil).Once()
				}
			}

			handler := NewOutboxService(repo, testCfg, newNoopLogger()).ActivationHandler(act)
			err := handler(context.Background(), message(t, 5))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if !tt.wantCalls {
				act.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			repo.AssertExpectations(t)
			act.AssertExpectations(t)
		})
	}

	t.Run("malformed body acked", func(t *testing.T) {
		handler := NewOutboxService(new(RepoMock), testCfg, newNoopLogger()).ActivationHandler(new(ActivatorMock))
		require.NoError(t, handler(context.Background(), []byte("{")))
	})
}

func TestRetry(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ResetOutboxEvent", mock.Anything, int64(4)).Return(nil).Once()
	repo.On("GetOutboxEvent", mock.Anything, int64(4)).Return(activationEvent(4, models.OutboxPending), nil).Once()
	repo.On("ResetOutboxEvent", mock.Anything, int64(9)).Return(models.ErrNotFound).Once()

	svc := NewOutboxService(repo, testCfg, newNoopLogger())
	ev, err := svc.Retry(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxPending, ev.Status)

	_, err = svc.Retry(context.Background(), 9)
	require.ErrorIs(t, err, models.ErrNotFound)
}

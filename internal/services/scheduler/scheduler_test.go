package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindMembershipsEndingOn(ctx context.Context, date time.Time) ([]models.MembershipReminder, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MembershipReminder), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSchedulerService_RemindExpiring(t *testing.T) {
	now := time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	first := models.MembershipReminder{UserID: 1, Email: "a@example.com", MembershipEnd: tomorrow}
	second := models.MembershipReminder{UserID: 2, Email: "b@example.com", MembershipEnd: tomorrow}

	tests := []struct {
		name       string
		setupMocks func(*MockRepository, *MockPublisher)
		want       int
		wantErr    bool
	}{
		{
			name: "publishes every reminder",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindMembershipsEndingOn", mock.Anything, tomorrow).
					Return([]models.MembershipReminder{first, second}, nil).Once()
				p.On("Publish", rabbitmq.RoutingMembershipExpiring, first).Return(nil).Once()
				p.On("Publish", rabbitmq.RoutingMembershipExpiring, second).Return(nil).Once()
			},
			want: 2,
		},
		{
			name: "nothing ends tomorrow",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindMembershipsEndingOn", mock.Anything, tomorrow).
					Return([]models.MembershipReminder{}, nil).Once()
			},
		},
		{
			name: "publish error skips one",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindMembershipsEndingOn", mock.Anything, tomorrow).
					Return([]models.MembershipReminder{first, second}, nil).Once()
				p.On("Publish", rabbitmq.RoutingMembershipExpiring, first).Return(errors.New("channel closed")).Once()
				p.On("Publish", rabbitmq.RoutingMembershipExpiring, second).Return(nil).Once()
			},
			want: 1,
		},
		{
			name: "repository error",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindMembershipsEndingOn", mock.Anything, tomorrow).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			tt.setupMocks(repo, pub)

			service := NewSchedulerService(repo, pub, newNoopLogger())
			service.now = func() time.Time { return now }

			n, err := service.RemindExpiring(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, n)

			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_RunStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	called := make(chan struct{})
	repo.On("FindMembershipsEndingOn", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(called) }).
		Return([]models.MembershipReminder{}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSchedulerService(repo, new(MockPublisher), newNoopLogger()).RunMembershipReminders(ctx)
		close(done)
	}()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("first run did not happen")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

package outbox

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/gym-management/internal/http/handlers/handlertest"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, status models.OutboxStatus) ([]*models.OutboxEvent, error) {
	args := m.Called(ctx, status)
	res, _ := args.Get(0).([]*models.OutboxEvent)
	return res, args.Error(1)
}

func (m *MockService) Retry(ctx context.Context, id int64) (*models.OutboxEvent, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.OutboxEvent)
	return res, args.Error(1)
}

var admin = &models.Actor{ID: 1, Role: models.RoleAdmin}

func TestList(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		status         *models.OutboxStatus
		expectedStatus int
	}{
		{name: "all", url: "/api/v1/admin/outbox/", status: ptr(models.OutboxStatus("")), expectedStatus: http.StatusOK},
		{name: "failed only", url: "/api/v1/admin/outbox/?status=failed", status: ptr(models.OutboxFailed), expectedStatus: http.StatusOK},
		{name: "unknown status", url: "/api/v1/admin/outbox/?status=lost", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.status != nil {
				svc.On("List", mock.Anything, *tt.status).
					Return([]*models.OutboxEvent{{ID: 1, Status: models.OutboxFailed, LastError: "plan not found"}}, nil).Once()
			}
			w := handlertest.Serve(t, New(handlertest.NoopLogger(), svc).List, handlertest.Request{
				Method: http.MethodGet, URL: tt.url, Actor: admin,
			})
			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestRetry(t *testing.T) {
	svc := new(MockService)
	svc.On("Retry", mock.Anything, int64(4)).Return(&models.OutboxEvent{ID: 4, Status: models.OutboxPending}, nil).Once()
	svc.On("Retry", mock.Anything, int64(5)).Return(nil, models.ErrNotFound).Once()
	h := New(handlertest.NoopLogger(), svc)

	w := handlertest.Serve(t, h.Retry, handlertest.Request{
		Method: http.MethodPost, URL: "/api/v1/admin/outbox/4/retry/", Actor: admin, Params: map[string]string{"id": "4"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	w = handlertest.Serve(t, h.Retry, handlertest.Request{
		Method: http.MethodPost, URL: "/api/v1/admin/outbox/5/retry/", Actor: admin, Params: map[string]string{"id": "5"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}

func ptr[T any](v T) *T { return &v }

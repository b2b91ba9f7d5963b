package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

func TestStorage_Orders(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userID := factory.CreateUser(t, models.RoleUser)
	planID := factory.CreatePlan(t, 30)

	order := &models.Order{
		OrderNumber: "ORD-" + uuid.NewString(),
		UserID:      userID,
		Status:      models.OrderPending,
		Items: []models.OrderItem{
			{ItemType: models.ItemMembership, ItemID: planID, ItemName: "Monthly", Quantity: 1, Price: 300000},
			{ItemType: models.ItemCourse, ItemID: 1, ItemName: "Yoga", Quantity: 3, Price: 150000},
		},
	}
	require.NoError(t, storage.CreateOrder(ctx, order))
	require.NotZero(t, order.ID)

	t.Run("totals computed on save", func(t *testing.T) {
		got, err := storage.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		assert.Equal(t, int64(300000), got.Items[0].ItemTotal)
		assert.Equal(t, int64(450000), got.Items[1].ItemTotal)
		assert.Equal(t, int64(750000), got.TotalAmount)
		assert.Empty(t, got.PaymentMethod)
		assert.Nil(t, got.PaidAt)
	})

	t.Run("paid with outbox event in one transaction", func(t *testing.T) {
		err := storage.InTx(ctx, func(ctx context.Context) error {
			locked, err := storage.LockOrder(ctx, order.ID)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			locked.Status = models.OrderPaid
			locked.PaymentMethod = models.PaymentCreditCard
			locked.PaidAt = &now
			if err := storage.UpdateOrder(ctx, locked); err != nil {
				return err
			}
			_, err = storage.InsertOutboxEvent(ctx, models.EventMembershipActivate, models.MembershipActivatePayload{
				OrderID: locked.ID, UserID: locked.UserID, PlanID: planID,
			})
			return err
		})
		require.NoError(t, err)

		got, err := storage.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderPaid, got.Status)
		assert.Equal(t, models.PaymentCreditCard, got.PaymentMethod)
		require.NotNil(t, got.PaidAt)

		events, err := storage.ListOutboxEvents(ctx, models.OutboxPending, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		var payload models.MembershipActivatePayload
		require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
		assert.Equal(t, models.MembershipActivatePayload{OrderID: order.ID, UserID: userID, PlanID: planID}, payload)
	})

	t.Run("list by user", func(t *testing.T) {
		orders, err := storage.ListOrders(ctx, models.OrderFilter{UserID: userID})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Len(t, orders[0].Items, 2)

		orders, err = storage.ListOrders(ctx, models.OrderFilter{Status: models.OrderPending})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

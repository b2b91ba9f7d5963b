// Package services содержит заказы: создание по ценам каталога и смену
// статуса. Оплата заказа с тарифным планом записывает событие активации
// абонемента в outbox в той же транзакции.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/magabrotheeeer/gym-management/internal/metrics"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// OrderRepository методы хранилища для заказов.
type OrderRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	LockOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	InsertOutboxEvent(ctx context.Context, eventType string, payload any) (int64, error)
	GetPlan(ctx context.Context, id int64) (*models.MembershipPlan, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
}

// OrderService реализует заказы.
type OrderService struct {
	repo   OrderRepository
	tracer trace.Tracer
	now    func() time.Time
	log    *slog.Logger
}

// NewOrderService создает новый экземпляр OrderService.
func NewOrderService(repo OrderRepository, log *slog.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		tracer: otel.Tracer("gym/order"),
		now:    time.Now,
		log:    log,
	}
}

// Create оформляет заказ. Названия и цены позиций берутся из каталога.
// Заказ, созданный сразу в статусе paid, записывается вместе с событием
// активации абонемента в одной транзакции.
func (s *OrderService) Create(ctx context.Context, actor models.Actor, in models.OrderInput) (*models.Order, error) {
	const op = "services.order.Create"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("user.id", actor.ID),
		attribute.String("order.status", string(in.Status)),
	))
	defer span.End()

	order := &models.Order{
		OrderNumber:   "ORD-" + uuid.NewString(),
		UserID:        actor.ID,
		Status:        models.OrderPending,
		PaymentMethod: in.PaymentMethod,
		PaymentID:     in.PaymentID,
		Remark:        in.Remark,
	}
	switch in.Status {
	case "", models.OrderPending:
	case models.OrderPaid:
		if in.PaymentMethod == "" {
			return nil, s.fail(span, op, models.ErrPaymentMethodRequired)
		}
		paidAt := s.now()
		order.Status = models.OrderPaid
		order.PaidAt = &paidAt
	default:
		return nil, s.fail(span, op, models.ErrInvalidTransition)
	}
	for _, it := range in.Items {
		item, err := s.priceItem(ctx, it)
		if err != nil {
			return nil, s.fail(span, op, err)
		}
		order.Items = append(order.Items, item)
	}

	var activated bool
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if order.Status != models.OrderPaid {
			return nil
		}
		var err error
		activated, err = s.enqueueActivation(ctx, order)
		return err
	})
	if err != nil {
		return nil, s.fail(span, op, err)
	}
	if order.Status == models.OrderPaid {
		metrics.OrderTransitions.WithLabelValues("new", string(models.OrderPaid)).Inc()
	}
	s.log.Info("order created", slog.Int64("order_id", order.ID), slog.Int64("user_id", actor.ID),
		slog.String("status", string(order.Status)), slog.Int64("total", order.TotalAmount),
		slog.Bool("activation_queued", activated))
	return s.repo.GetOrder(ctx, order.ID)
}

// enqueueActivation пишет в outbox событие активации по первому тарифу заказа.
// Один заказ активирует не больше одного абонемента.
func (s *OrderService) enqueueActivation(ctx context.Context, order *models.Order) (bool, error) {
	planID, ok := order.ActivationPlanID()
	if !ok {
		return false, nil
	}
	_, err := s.repo.InsertOutboxEvent(ctx, models.EventMembershipActivate, models.MembershipActivatePayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		PlanID:  planID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *OrderService) priceItem(ctx context.Context, in models.OrderItemInput) (models.OrderItem, error) {
	item := models.OrderItem{ItemType: in.ItemType, ItemID: in.ItemID, Quantity: in.Quantity}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	switch in.ItemType {
	case models.ItemMembership:
		plan, err := s.repo.GetPlan(ctx, in.ItemID)
		if err != nil {
			return item, err
		}
		if !plan.IsActive {
			return item, models.ErrInactiveItem
		}
		item.ItemName, item.Price = plan.Name, plan.Price
	case models.ItemCourse:
		course, err := s.repo.GetCourse(ctx, in.ItemID)
		if err != nil {
			return item, err
		}
		if !course.IsActive {
			return item, models.ErrInactiveItem
		}
		item.ItemName, item.Price = course.Name, course.Price
	default:
		return item, models.ErrInactiveItem
	}
	return item, nil
}

// Get возвращает заказ владельцу и сотрудникам.
func (s *OrderService) Get(ctx context.Context, actor models.Actor, id int64) (*models.Order, error) {
	const op = "services.order.Get"
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !actor.Owns(order.UserID) && !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	return order, nil
}

// List возвращает заказы. Пользователи видят только свои.
func (s *OrderService) List(ctx context.Context, actor models.Actor, filter models.OrderFilter) ([]*models.Order, error) {
	const op = "services.order.List"
	if !actor.Role.IsStaff() {
		filter.UserID = actor.ID
	}
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// Cancel отменяет неоплаченный заказ.
func (s *OrderService) Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Order, error) {
	return s.Update(ctx, actor, id, models.OrderUpdate{Status: models.OrderCancelled})
}

// Update меняет статус заказа. Строка заказа блокируется, поэтому перевод
// в paid и событие активации происходят ровно один раз.
func (s *OrderService) Update(ctx context.Context, actor models.Actor, id int64, upd models.OrderUpdate) (*models.Order, error) {
	const op = "services.order.Update"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(upd.Status)),
	))
	defer span.End()

	var from models.OrderStatus
	var activated bool
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		order, err := s.repo.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(order.UserID) {
			return models.ErrForbidden
		}
		from = order.Status

		if order.Status != upd.Status {
			if err := s.transition(actor, order, upd); err != nil {
				return err
			}
		}
		if upd.Remark != nil {
			order.Remark = *upd.Remark
		}
		if err := s.repo.UpdateOrder(ctx, order); err != nil {
			return err
		}

		if from == models.OrderPending && order.Status == models.OrderPaid {
			activated, err = s.enqueueActivation(ctx, order)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, op, err)
	}

	if from != upd.Status {
		metrics.OrderTransitions.WithLabelValues(string(from), string(upd.Status)).Inc()
		s.log.Info("order status changed", slog.Int64("order_id", id),
			slog.String("from", string(from)), slog.String("to", string(upd.Status)),
			slog.Bool("activation_queued", activated))
	}
	return s.repo.GetOrder(ctx, id)
}

func (s *OrderService) transition(actor models.Actor, order *models.Order, upd models.OrderUpdate) error {
	switch {
	case order.Status == models.OrderPending && upd.Status == models.OrderPaid:
		if upd.PaymentMethod != "" {
			order.PaymentMethod = upd.PaymentMethod
		}
		if order.PaymentMethod == "" {
			return models.ErrPaymentMethodRequired
		}
		paidAt := s.now()
		if upd.PaidAt != nil {
			paidAt = *upd.PaidAt
		}
		order.PaidAt = &paidAt
		if upd.PaymentID != "" {
			order.PaymentID = upd.PaymentID
		}
	case order.Status == models.OrderPending && upd.Status == models.OrderCancelled:
	case order.Status == models.OrderPaid && upd.Status == models.OrderRefunded:
		if !actor.IsAdmin() {
			return models.ErrForbidden
		}
	default:
		return models.ErrInvalidTransition
	}
	order.Status = upd.Status
	return nil
}

func (s *OrderService) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return fmt.Errorf("%s: %w", op, err)
}

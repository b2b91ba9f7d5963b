package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

const orderSelect = `SELECT o.id, o.order_number, o.user_id, u.username, o.status, o.total_amount,
	COALESCE(o.payment_method, ''), o.payment_id, o.paid_at, o.remark, o.created_at, o.updated_at
	FROM orders o
	JOIN users u ON u.id = o.user_id`

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o      models.Order
		paidAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Username, &o.Status, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentID, &paidAt, &o.Remark, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.PaidAt = timePtr(paidAt)
	return &o, nil
}

// CreateOrder сохраняет заказ вместе с позициями. Стоимость позиций и итог
// пересчитываются перед записью. Идентификаторы записываются в order.
func (s *Storage) CreateOrder(ctx context.Context, order *models.Order) error {
	const op = "storage.CreateOrder"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	order.Recalculate()
	return s.InTx(ctx, func(ctx context.Context) error {
		err := s.conn(ctx).QueryRowContext(ctx, `
			INSERT INTO orders (order_number, user_id, status, total_amount, payment_method, payment_id, paid_at, remark)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`,
			order.OrderNumber, order.UserID, string(order.Status), order.TotalAmount,
			nullString(string(order.PaymentMethod)), order.PaymentID, order.PaidAt, order.Remark,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return wrap(op, err)
		}

		for i := range order.Items {
			it := &order.Items[i]
			it.OrderID = order.ID
			err := s.conn(ctx).QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, item_type, item_id, item_name, quantity, price, item_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id, created_at`,
				it.OrderID, string(it.ItemType), it.ItemID, it.ItemName, it.Quantity, it.Price, it.ItemTotal,
			).Scan(&it.ID, &it.CreatedAt)
			if err != nil {
				return wrap(op, err)
			}
		}
		return nil
	})
}

func (s *Storage) loadOrderItems(ctx context.Context, order *models.Order) error {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, order_id, item_type, item_id, item_name, quantity, price, item_total, created_at
		FROM order_items WHERE order_id = $1 ORDER BY id`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.Items = order.Items[:0]
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemType, &it.ItemID, &it.ItemName, &it.Quantity,
			&it.Price, &it.ItemTotal, &it.CreatedAt); err != nil {
			return err
		}
		order.Items = append(order.Items, it)
	}
	return rows.Err()
}

// GetOrder возвращает заказ с позициями.
func (s *Storage) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	const op = "storage.GetOrder"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	order, err := scanOrder(s.conn(ctx).QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := s.loadOrderItems(ctx, order); err != nil {
		return nil, wrap(op, err)
	}
	return order, nil
}

// LockOrder читает заказ с позициями и блокирует строку заказа.
func (s *Storage) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	const op = "storage.LockOrder"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	order, err := scanOrder(s.conn(ctx).QueryRowContext(ctx, orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := s.loadOrderItems(ctx, order); err != nil {
		return nil, wrap(op, err)
	}
	return order, nil
}

// ListOrders возвращает заказы по фильтру, новые первыми.
func (s *Storage) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	const op = "storage.ListOrders"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		where []string
		args  []any
	)
	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		where = append(where, "o.user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "o.status = $"+strconv.Itoa(len(args)))
	}
	query := orderSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, wrap(op, err)
		}
		orders = append(orders, order)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, wrap(op, err)
	}

	// позиции читаются после закрытия курсора: внутри транзакции соединение одно
	for _, order := range orders {
		if err := s.loadOrderItems(ctx, order); err != nil {
			return nil, wrap(op, err)
		}
	}
	return orders, nil
}

// UpdateOrder сохраняет статус и платёжные данные заказа.
func (s *Storage) UpdateOrder(ctx context.Context, order *models.Order) error {
	const op = "storage.UpdateOrder"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE orders SET
			status = $2, payment_method = $3, payment_id = $4, paid_at = $5, remark = $6, updated_at = NOW()
		WHERE id = $1`,
		order.ID, string(order.Status), nullString(string(order.PaymentMethod)), order.PaymentID,
		order.PaidAt, order.Remark,
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

package models

import "time"

// OrderStatus статус заказа.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// PaymentMethod способ оплаты.
type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// ItemType тип позиции заказа.
type ItemType string

const (
	ItemMembership ItemType = "membership"
	ItemCourse     ItemType = "course"
)

// Order заказ пользователя. Суммы в копейках.
type Order struct {
	ID            int64         `json:"id"`
	OrderNumber   string        `json:"order_number"`
	UserID        int64         `json:"user_id"`
	Username      string        `json:"username"`
	Status        OrderStatus   `json:"status"`
	TotalAmount   int64         `json:"total_amount"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	PaymentID     string        `json:"payment_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	Remark        string        `json:"remark"`
	Items         []OrderItem   `json:"items"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// OrderItem позиция заказа.
type OrderItem struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	ItemType  ItemType  `json:"item_type"`
	ItemID    int64     `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"`
	ItemTotal int64     `json:"item_total"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemTotal стоимость позиции.
func ItemTotal(price int64, quantity int) int64 {
	return price * int64(quantity)
}

// Recalculate пересчитывает стоимость позиций и итог заказа.
func (o *Order) Recalculate() {
	var total int64
	for i := range o.Items {
		o.Items[i].ItemTotal = ItemTotal(o.Items[i].Price, o.Items[i].Quantity)
		total += o.Items[i].ItemTotal
	}
	o.TotalAmount = total
}

// ActivationPlanID тариф, по которому оплаченный заказ активирует абонемент.
// Учитывается только первая позиция-тариф.
func (o *Order) ActivationPlanID() (int64, bool) {
	for _, it := range o.Items {
		if it.ItemType == ItemMembership {
			return it.ItemID, true
		}
	}
	return 0, false
}

// OrderItemInput позиция в запросе на создание заказа.
type OrderItemInput struct {
	ItemType ItemType `json:"item_type" validate:"required,oneof=membership course"`
	ItemID   int64    `json:"item_id" validate:"required,min=1"`
	Quantity int      `json:"quantity" validate:"omitempty,min=1,max=100"`
}

// OrderInput запрос на создание заказа. Status пустой или pending создаёт
// неоплаченный заказ, paid требует способа оплаты.
type OrderInput struct {
	Items         []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Status        OrderStatus      `json:"status" validate:"omitempty,oneof=pending paid"`
	PaymentMethod PaymentMethod    `json:"payment_method" validate:"omitempty,oneof=credit_card debit_card paypal bank_transfer"`
	PaymentID     string           `json:"payment_id" validate:"max=100"`
	Remark        string           `json:"remark" validate:"max=1000"`
}

// OrderUpdate изменение статуса и платёжных данных заказа.
type OrderUpdate struct {
	Status        OrderStatus   `json:"status" validate:"required,oneof=pending paid cancelled refunded"`
	PaymentMethod PaymentMethod `json:"payment_method" validate:"omitempty,oneof=credit_card debit_card paypal bank_transfer"`
	PaymentID     string        `json:"payment_id" validate:"max=100"`
	PaidAt        *time.Time    `json:"paid_at"`
	Remark        *string       `json:"remark" validate:"omitempty,max=1000"`
}

// OrderFilter фильтр списка заказов.
type OrderFilter struct {
	UserID int64
	Status OrderStatus
}

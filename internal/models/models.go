package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusWaiting        OrderStatus = "waiting"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusTransferring   OrderStatus = "transferring"
	OrderStatusFinished       OrderStatus = "finished"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// statusRank задаёт порядок статусов по ходу жизненного цикла заказа.
var statusRank = map[OrderStatus]int{
	OrderStatusWaiting:        1,
	OrderStatusPendingPayment: 2,
	OrderStatusProcessing:     3,
	OrderStatusReady:          4,
	OrderStatusTransferring:   5,
	OrderStatusFinished:       6,
}

// ActiveStatuses — заказ считается "в работе".
var ActiveStatuses = []OrderStatus{
	OrderStatusWaiting,
	OrderStatusPendingPayment,
	OrderStatusProcessing,
	OrderStatusReady,
	OrderStatusTransferring,
}

// FinishedStatuses — заказ считается завершённым.
var FinishedStatuses = []OrderStatus{
	OrderStatusFinished,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusWaiting, OrderStatusPendingPayment, OrderStatusProcessing,
		OrderStatusReady, OrderStatusTransferring, OrderStatusFinished, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFinished || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода заказа в статус next.
// Разрешено движение только вперёд по жизненному циклу (с пропуском
// промежуточных статусов), finished достижим только из ready или
// transferring, cancelled — из любого нетерминального статуса.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	switch next {
	case OrderStatusCancelled:
		return true
	case OrderStatusFinished:
		return s == OrderStatusReady || s == OrderStatusTransferring
	default:
		return statusRank[next] > statusRank[s]
	}
}

type DeliveryWay string

const (
	DeliveryWayPickup   DeliveryWay = "pickup"
	DeliveryWayDelivery DeliveryWay = "delivery"
)

func (w DeliveryWay) Valid() bool {
	return w == DeliveryWayPickup || w == DeliveryWayDelivery
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusCanceled  PaymentStatus = "canceled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusCanceled:
		return true
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusCanceled
}

type User struct {
	ID         int64 `json:"id"`
	ExternalID int64 `json:"external_id"`
}

type BuyerProfile struct {
	UserID    int64          `json:"user_id"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone"`
	Username  sql.NullString `json:"username,omitempty"`
	Address   sql.NullString `json:"address,omitempty"`
	Porch     sql.NullString `json:"porch,omitempty"`
	Floor     sql.NullString `json:"floor,omitempty"`
	Apartment sql.NullString `json:"apartment,omitempty"`
	Bonus     int64          `json:"bonus"`
}

type Product struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Price    int64           `json:"price"` // в минорных единицах валюты
	Quantity int64           `json:"quantity"`
	WeightKg sql.NullFloat64 `json:"weight_kg,omitempty"`
	LengthCm sql.NullFloat64 `json:"length_cm,omitempty"`
	WidthCm  sql.NullFloat64 `json:"width_cm,omitempty"`
	HeightCm sql.NullFloat64 `json:"height_cm,omitempty"`
	Image    sql.NullString  `json:"image,omitempty"`
}

type Order struct {
	ID               int64           `json:"id"`
	BuyerID          int64           `json:"buyer_id"`
	Status           OrderStatus     `json:"status"`
	DeliveryWay      DeliveryWay     `json:"delivery_way"`
	DeliveryAddress  sql.NullString  `json:"delivery_address,omitempty"`
	Comment          sql.NullString  `json:"comment,omitempty"`
	UsedBonus        int64           `json:"used_bonus"`
	RegistrationDate time.Time       `json:"registration_date"`
	FinishedAt       sql.NullTime    `json:"finished_at,omitempty"`
	DeliveryDate     sql.NullTime    `json:"delivery_date,omitempty"`
	DeliveryCost     decimal.Decimal `json:"delivery_cost"`
	ClaimID          sql.NullString  `json:"claim_id,omitempty"`
	PaymentInfo      json.RawMessage `json:"payment_info,omitempty"`
	PaymentDate      sql.NullTime    `json:"payment_date,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (o *Order) Active() bool {
	return o.Status.Valid() && !o.Status.Terminal()
}

type OrderItem struct {
	OrderID    int64 `json:"order_id"`
	PositionID int64 `json:"position_id"`
	Qty        int64 `json:"qty"`
}

// OrderLine — позиция заказа вместе с данными товара (для чеков и списков).
type OrderLine struct {
	Title string `json:"title"`
	Price int64  `json:"price"`
	Qty   int64  `json:"qty"`
}

type Payment struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	OrderID   sql.NullInt64   `json:"order_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	GatewayID string          `json:"gateway_id"`
	Status    PaymentStatus   `json:"status"`
}

type Warehouse struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Address      string         `json:"address"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	ContactName  string         `json:"contact_name"`
	ContactPhone string         `json:"contact_phone"`
	Porch        sql.NullString `json:"porch,omitempty"`
	Floor        sql.NullString `json:"floor,omitempty"`
	Apartment    sql.NullString `json:"apartment,omitempty"`
	Comment      sql.NullString `json:"comment,omitempty"`
	IsActive     bool           `json:"is_active"`
	IsDefault    bool           `json:"is_default"`
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
)

// Интерфейсы слоя хранения. Сервис и сервер зависят от них, а не от
// конкретных Postgres-реализаций, что позволяет подменять хранилище в тестах.

type Users interface {
	Create(ctx context.Context, externalID int64) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	UpsertProfile(ctx context.Context, p *models.BuyerProfile) error
	GetProfile(ctx context.Context, userID int64) (*models.BuyerProfile, error)
	UpdateAddress(ctx context.Context, userID int64, address string) error
	Bonuses(ctx context.Context, userID int64) (int64, error)
	AddBonuses(ctx context.Context, userID int64, amount int64) error
}

type Products interface {
	Create(ctx context.Context, p *models.Product) (int64, error)
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	ListAvailable(ctx context.Context) ([]*models.Product, error)
}

type Orders interface {
	Create(ctx context.Context, req CreateOrderRequest) (int64, error)
	Transition(ctx context.Context, orderID int64, next models.OrderStatus) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID int64, finished bool) ([]*models.Order, error)
	ListByStatus(ctx context.Context, status models.OrderStatus, limit int64) ([]*models.Order, error)
	List(ctx context.Context, cursor int64, limit int64) ([]*models.Order, error)
	CountActive(ctx context.Context, buyerID int64) (int64, error)
	Lines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	TotalSum(ctx context.Context, orderID int64) (int64, error)
	SetClaim(ctx context.Context, orderID int64, claimID string) error
	MarkPaid(ctx context.Context, orderID int64, info json.RawMessage) error
}

type Payments interface {
	Record(ctx context.Context, userID int64, orderID sql.NullInt64, amount decimal.Decimal, gatewayID string) (*models.Payment, error)
	Settle(ctx context.Context, gatewayID string, status models.PaymentStatus) (*models.Payment, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error)
}

type Warehouses interface {
	Create(ctx context.Context, w *models.Warehouse) (int64, error)
	SetDefault(ctx context.Context, id int64) error
	Default(ctx context.Context) (*models.Warehouse, error)
	GetByID(ctx context.Context, id int64) (*models.Warehouse, error)
	List(ctx context.Context) ([]*models.Warehouse, error)
	UpdateLocation(ctx context.Context, id int64, lat, lon float64) error
	UpdateField(ctx context.Context, id int64, field, value string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

var (
	_ Users      = (*UserRepository)(nil)
	_ Products   = (*ProductRepository)(nil)
	_ Orders     = (*OrderRepository)(nil)
	_ Payments   = (*PaymentRepository)(nil)
	_ Warehouses = (*WarehouseRepository)(nil)
)

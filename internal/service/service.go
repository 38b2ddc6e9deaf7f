package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/berryshop/internal/audit"
	"gitlab.ozon.dev/qwestard/berryshop/internal/cache"
	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
	"gitlab.ozon.dev/qwestard/berryshop/internal/repository"
)

// Service связывает репозитории, кеши и аудит в операции уровня приложения.
type Service struct {
	users      repository.Users
	products   repository.Products
	orders     repository.Orders
	payments   repository.Payments
	warehouses repository.Warehouses

	outbox    repository.AuditTaskRepository
	auditPool *audit.AuditWorkerPool

	activeCache  *cache.ActiveOrdersCache
	historyCache *cache.HistoryCache
}

type Deps struct {
	Users      repository.Users
	Products   repository.Products
	Orders     repository.Orders
	Payments   repository.Payments
	Warehouses repository.Warehouses
	Outbox     repository.AuditTaskRepository
	AuditPool  *audit.AuditWorkerPool
}

func New(deps Deps) *Service {
	return &Service{
		users:        deps.Users,
		products:     deps.Products,
		orders:       deps.Orders,
		payments:     deps.Payments,
		warehouses:   deps.Warehouses,
		outbox:       deps.Outbox,
		auditPool:    deps.AuditPool,
		activeCache:  cache.NewActiveOrdersCache(),
		historyCache: cache.NewHistoryCache(),
	}
}

// --- Пользователи и анкеты ---

func (s *Service) RegisterUser(ctx context.Context, externalID int64) (*models.User, error) {
	return s.users.Create(ctx, externalID)
}

func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	// Заказы пользователя удалены каскадно, вычищаем их из кеша.
	s.activeCache.Mu.Lock()
	for id, o := range s.activeCache.Orders {
		if o.BuyerID == userID {
			delete(s.activeCache.Orders, id)
		}
	}
	s.activeCache.Mu.Unlock()
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) GetUserByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	return s.users.GetByExternalID(ctx, externalID)
}

func (s *Service) UpsertProfile(ctx context.Context, p *models.BuyerProfile) error {
	return s.users.UpsertProfile(ctx, p)
}

func (s *Service) UpdateAddress(ctx context.Context, userID int64, address string) error {
	return s.users.UpdateAddress(ctx, userID, address)
}

func (s *Service) Profile(ctx context.Context, userID int64) (*models.BuyerProfile, error) {
	return s.users.GetProfile(ctx, userID)
}

func (s *Service) Bonuses(ctx context.Context, userID int64) (int64, error) {
	return s.users.Bonuses(ctx, userID)
}

func (s *Service) AddBonuses(ctx context.Context, userID int64, amount int64) error {
	return s.users.AddBonuses(ctx, userID, amount)
}

// --- Каталог ---

func (s *Service) CreateProduct(ctx context.Context, p *models.Product) (int64, error) {
	return s.products.Create(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, p *models.Product) error {
	return s.products.Update(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.products.Delete(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.products.ListAvailable(ctx)
}

// --- Заказы ---

func (s *Service) CreateOrder(ctx context.Context, req repository.CreateOrderRequest) (*models.Order, error) {
	orderID, err := s.orders.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order != nil {
		s.activeCache.Put(order)
		s.emitTransition(ctx, order.ID, "", order.Status, "Order created")
	}
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	if order, ok := s.activeCache.Get(id); ok {
		return order, nil
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, repository.ErrUnknownOrder
	}
	s.activeCache.Put(order)
	return order, nil
}

// TransitionOrder переводит заказ в новый статус и пишет переход в аудит.
func (s *Service) TransitionOrder(ctx context.Context, orderID int64, next models.OrderStatus) (*models.Order, error) {
	old, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, repository.ErrUnknownOrder
	}
	if err := s.orders.Transition(ctx, orderID, next); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order != nil {
		s.activeCache.Put(order)
		s.emitTransition(ctx, orderID, old.Status, order.Status, "Order transitioned")
	}
	return order, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.TransitionOrder(ctx, orderID, models.OrderStatusCancelled)
}

func (s *Service) OrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	return s.orders.Lines(ctx, orderID)
}

func (s *Service) OrderTotal(ctx context.Context, orderID int64) (int64, error) {
	return s.orders.TotalSum(ctx, orderID)
}

func (s *Service) ListOrdersByBuyer(ctx context.Context, buyerID int64, finished bool) ([]*models.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID, finished)
}

func (s *Service) ListOrdersByStatus(ctx context.Context, status models.OrderStatus, limit int64) ([]*models.Order, error) {
	return s.orders.ListByStatus(ctx, status, limit)
}

// CountActiveOrders — число незавершённых заказов покупателя.
func (s *Service) CountActiveOrders(ctx context.Context, buyerID int64) (int64, error) {
	return s.orders.CountActive(ctx, buyerID)
}

func (s *Service) SetOrderClaim(ctx context.Context, orderID int64, claimID string) error {
	return s.orders.SetClaim(ctx, orderID, claimID)
}

func (s *Service) RefreshActiveOrders(ctx context.Context) error {
	orders, err := s.orders.List(ctx, 0, 1000)
	if err != nil {
		return err
	}
	newMap := make(map[int64]*models.Order)
	for _, o := range orders {
		if o.Active() {
			newMap[o.ID] = o
		}
	}
	s.activeCache.Mu.Lock()
	s.activeCache.Orders = newMap
	s.activeCache.Mu.Unlock()
	return nil
}

func (s *Service) ListActiveOrders() []*models.Order {
	s.activeCache.Mu.RLock()
	defer s.activeCache.Mu.RUnlock()
	orders := make([]*models.Order, 0, len(s.activeCache.Orders))
	for _, o := range s.activeCache.Orders {
		orders = append(orders, o)
	}
	return orders
}

func (s *Service) ListHistoryOrders() []*models.Order {
	return s.historyCache.Get()
}

func (s *Service) RefreshHistoryOrders(ctx context.Context) error {
	return s.historyCache.Refresh(ctx, s.orders)
}

func (s *Service) StartCacheRefresh(ctx context.Context, interval time.Duration) {
	go s.historyCache.StartAutoRefresh(ctx, s.orders, interval)
}

// --- Платежи ---

// RecordPayment регистрирует платёжную попытку. Заказ в статусе waiting
// переводится в pending_payment: появилась попытка оплаты.
func (s *Service) RecordPayment(ctx context.Context, userID int64, orderID sql.NullInt64, amount decimal.Decimal, gatewayID string) (*models.Payment, error) {
	payment, err := s.payments.Record(ctx, userID, orderID, amount, gatewayID)
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		order, err := s.orders.GetByID(ctx, orderID.Int64)
		if err != nil {
			return payment, err
		}
		if order != nil && order.Status == models.OrderStatusWaiting {
			if _, err := s.TransitionOrder(ctx, order.ID, models.OrderStatusPendingPayment); err != nil {
				return payment, err
			}
		}
	}
	return payment, nil
}

// SettlePayment завершает платёж. Успешная оплата прикладывает метаданные
// платежа к заказу и двигает его из pending_payment в processing.
func (s *Service) SettlePayment(ctx context.Context, gatewayID string, status models.PaymentStatus) (*models.Payment, error) {
	payment, err := s.payments.Settle(ctx, gatewayID, status)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusSucceeded || !payment.OrderID.Valid {
		return payment, nil
	}

	info, err := json.Marshal(payment)
	if err != nil {
		return payment, err
	}
	if err := s.orders.MarkPaid(ctx, payment.OrderID.Int64, info); err != nil {
		return payment, err
	}
	order, err := s.orders.GetByID(ctx, payment.OrderID.Int64)
	if err != nil {
		return payment, err
	}
	if order != nil && order.Status == models.OrderStatusPendingPayment {
		if _, err := s.TransitionOrder(ctx, order.ID, models.OrderStatusProcessing); err != nil {
			return payment, err
		}
	}
	return payment, nil
}

func (s *Service) GetPayment(ctx context.Context, gatewayID string) (*models.Payment, error) {
	return s.payments.GetByGatewayID(ctx, gatewayID)
}

func (s *Service) ListPaymentsByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	return s.payments.ListByOrder(ctx, orderID)
}

// --- Склады ---

func (s *Service) CreateWarehouse(ctx context.Context, w *models.Warehouse) (int64, error) {
	return s.warehouses.Create(ctx, w)
}

func (s *Service) SetDefaultWarehouse(ctx context.Context, id int64) error {
	return s.warehouses.SetDefault(ctx, id)
}

func (s *Service) DefaultWarehouse(ctx context.Context) (*models.Warehouse, error) {
	return s.warehouses.Default(ctx)
}

func (s *Service) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	return s.warehouses.GetByID(ctx, id)
}

func (s *Service) ListWarehouses(ctx context.Context) ([]*models.Warehouse, error) {
	return s.warehouses.List(ctx)
}

func (s *Service) UpdateWarehouseLocation(ctx context.Context, id int64, lat, lon float64) error {
	return s.warehouses.UpdateLocation(ctx, id, lat, lon)
}

func (s *Service) UpdateWarehouseField(ctx context.Context, id int64, field, value string) error {
	return s.warehouses.UpdateField(ctx, id, field, value)
}

func (s *Service) SetWarehouseActive(ctx context.Context, id int64, active bool) error {
	return s.warehouses.SetActive(ctx, id, active)
}

// emitTransition пишет смену статуса в аудит-пул и ставит событие в outbox
// для публикации в Kafka. Сбой аудита не должен ломать основную операцию.
func (s *Service) emitTransition(ctx context.Context, orderID int64, old, next models.OrderStatus, msg string) {
	rec := audit.AuditLog{
		Timestamp: time.Now().UTC(),
		OrderID:   orderID,
		OldStatus: old,
		NewStatus: next,
		Message:   msg,
	}
	if s.auditPool != nil {
		s.auditPool.Log(rec)
	}
	if s.outbox != nil {
		data, err := json.Marshal(rec)
		if err != nil {
			log.Printf("marshal audit event: %v", err)
			return
		}
		if err := s.outbox.CreateTask(ctx, data); err != nil {
			log.Printf("enqueue audit event: %v", err)
		}
	}
}

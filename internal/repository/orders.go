package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// ItemRequest — запрошенная позиция корзины.
type ItemRequest struct {
	PositionID int64 `json:"position_id"`
	Qty        int64 `json:"qty"`
}

type CreateOrderRequest struct {
	BuyerID         int64              `json:"buyer_id"`
	DeliveryWay     models.DeliveryWay `json:"delivery_way"`
	DeliveryAddress string             `json:"delivery_address,omitempty"`
	Comment         string             `json:"comment,omitempty"`
	UsedBonus       int64              `json:"used_bonus"`
	Items           []ItemRequest      `json:"items"`
}

const orderColumns = `id, buyer_id, status, delivery_way, delivery_address, comment, used_bonus,
	registration_date, finished_at, delivery_date, delivery_cost, claim_id, payment_info, payment_date, created_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	o := &models.Order{}
	var paymentInfo []byte
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.Status, &o.DeliveryWay, &o.DeliveryAddress, &o.Comment, &o.UsedBonus,
		&o.RegistrationDate, &o.FinishedAt, &o.DeliveryDate, &o.DeliveryCost, &o.ClaimID,
		&paymentInfo, &o.PaymentDate, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentInfo = paymentInfo
	return o, nil
}

// Create создаёт заказ вместе с позициями одной транзакцией: блокирует
// строки склада, проверяет остатки, списывает бонусы и уменьшает остатки.
// Заказ появляется в статусе waiting либо не появляется вовсе.
func (r *OrderRepository) Create(ctx context.Context, req CreateOrderRequest) (int64, error) {
	if len(req.Items) == 0 {
		return 0, ErrEmptyCart
	}
	if !req.DeliveryWay.Valid() {
		return 0, ErrInvalidConstraint
	}
	pids := make([]int64, 0, len(req.Items))
	wanted := make(map[int64]int64, len(req.Items))
	for _, it := range req.Items {
		if it.Qty <= 0 {
			return 0, ErrInvalidQuantity
		}
		if _, dup := wanted[it.PositionID]; dup {
			return 0, ErrConstraintViolation
		}
		wanted[it.PositionID] = it.Qty
		pids = append(pids, it.PositionID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback()

	var buyerExists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_info WHERE id=$1)`, req.BuyerID,
	).Scan(&buyerExists); err != nil {
		return 0, fmt.Errorf("check buyer: %w", err)
	}
	if !buyerExists {
		return 0, ErrUnknownUser
	}

	// Блокируем выбранные позиции склада на время транзакции.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, price, quantity FROM product_position WHERE id = ANY($1) FOR UPDATE`,
		pq.Array(pids),
	)
	if err != nil {
		return 0, fmt.Errorf("lock products: %w", err)
	}
	type stockRow struct{ price, quantity int64 }
	stock := make(map[int64]stockRow, len(pids))
	for rows.Next() {
		var id int64
		var s stockRow
		if err := rows.Scan(&id, &s.price, &s.quantity); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan stock: %w", err)
		}
		stock[id] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}

	var total int64
	for pid, qty := range wanted {
		s, ok := stock[pid]
		if !ok {
			return 0, ErrUnknownProduct
		}
		if qty > s.quantity {
			return 0, ErrInsufficientStock
		}
		total += s.price * qty
	}

	// Списание бонусов ограничено балансом покупателя и суммой заказа.
	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT bonus_num FROM buyer_info WHERE user_id=$1 FOR UPDATE`, req.BuyerID,
	).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lock bonuses: %w", err)
	}
	usedBonus := req.UsedBonus
	if usedBonus < 0 {
		usedBonus = 0
	}
	if usedBonus > balance {
		usedBonus = balance
	}
	if usedBonus > total {
		usedBonus = total
	}

	var address, comment sql.NullString
	if req.DeliveryAddress != "" {
		address = sql.NullString{String: req.DeliveryAddress, Valid: true}
	}
	if req.Comment != "" {
		comment = sql.NullString{String: req.Comment, Valid: true}
	}

	var orderID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO buyer_orders (buyer_id, status, delivery_way, delivery_address, comment, used_bonus, registration_date)
		 VALUES ($1, 'waiting', $2, $3, $4, $5, CURRENT_DATE)
		 RETURNING id`,
		req.BuyerID, req.DeliveryWay, address, comment, usedBonus,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", constraintError(err))
	}

	for pid, qty := range wanted {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position_id, qty) VALUES ($1,$2,$3)`,
			orderID, pid, qty,
		); err != nil {
			return 0, fmt.Errorf("insert order item: %w", constraintError(err))
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE product_position SET quantity = quantity - $2 WHERE id=$1`,
			pid, qty,
		); err != nil {
			return 0, fmt.Errorf("decrement stock: %w", constraintError(err))
		}
	}

	if usedBonus > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE buyer_info SET bonus_num = bonus_num - $2 WHERE user_id=$1`,
			req.BuyerID, usedBonus,
		); err != nil {
			return 0, fmt.Errorf("deduct bonuses: %w", constraintError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create order: %w", err)
	}
	return orderID, nil
}

// Transition переводит заказ в статус next под блокировкой строки заказа.
// Переход в cancelled той же транзакцией возвращает товары на склад и
// бонусы покупателю.
func (r *OrderRepository) Transition(ctx context.Context, orderID int64, next models.OrderStatus) error {
	if !next.Valid() {
		return ErrIllegalTransition
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	var cur models.OrderStatus
	var buyerID, usedBonus int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, buyer_id, used_bonus FROM buyer_orders WHERE id=$1 FOR UPDATE`,
		orderID,
	).Scan(&cur, &buyerID, &usedBonus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnknownOrder
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if !cur.CanTransitionTo(next) {
		return ErrIllegalTransition
	}

	switch next {
	case models.OrderStatusCancelled:
		if _, err := tx.ExecContext(ctx,
			`UPDATE product_position pp
			 SET quantity = pp.quantity + oi.qty
			 FROM order_items oi
			 WHERE oi.order_id=$1 AND pp.id = oi.position_id`,
			orderID,
		); err != nil {
			return fmt.Errorf("restock items: %w", err)
		}
		if usedBonus > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE buyer_info SET bonus_num = bonus_num + $2 WHERE user_id=$1`,
				buyerID, usedBonus,
			); err != nil {
				return fmt.Errorf("refund bonuses: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE buyer_orders SET status='cancelled', finished_at=CURRENT_DATE WHERE id=$1`,
			orderID,
		); err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
	case models.OrderStatusFinished:
		if _, err := tx.ExecContext(ctx,
			`UPDATE buyer_orders SET status='finished', finished_at=CURRENT_DATE WHERE id=$1`,
			orderID,
		); err != nil {
			return fmt.Errorf("finish order: %w", err)
		}
	case models.OrderStatusTransferring:
		if _, err := tx.ExecContext(ctx,
			`UPDATE buyer_orders SET status=$2, delivery_date=COALESCE(delivery_date, CURRENT_DATE) WHERE id=$1`,
			orderID, next,
		); err != nil {
			return fmt.Errorf("transfer order: %w", err)
		}
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE buyer_orders SET status=$2 WHERE id=$1`,
			orderID, next,
		); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// GetByID — возвращает заказ по ID, nil если заказа нет.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM buyer_orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// ListByBuyer возвращает заказы покупателя: завершённые либо активные.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID int64, finished bool) ([]*models.Order, error) {
	group := models.ActiveStatuses
	if finished {
		group = models.FinishedStatuses
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+`
		 FROM buyer_orders
		 WHERE buyer_id=$1 AND status = ANY($2::order_status[])
		 ORDER BY registration_date DESC, id DESC`,
		buyerID, pq.Array(statusStrings(group)),
	)
	if err != nil {
		return nil, fmt.Errorf("list orders by buyer: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status models.OrderStatus, limit int64) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+`
		 FROM buyer_orders WHERE status=$1
		 ORDER BY registration_date DESC, id DESC LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// List — постраничный список всех заказов по возрастанию ID (cursor — ID
// последнего заказа предыдущей страницы).
func (r *OrderRepository) List(ctx context.Context, cursor int64, limit int64) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+`
		 FROM buyer_orders WHERE id > $1
		 ORDER BY id ASC LIMIT $2`,
		cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *OrderRepository) CountActive(ctx context.Context, buyerID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buyer_orders WHERE buyer_id=$1 AND status = ANY($2::order_status[])`,
		buyerID, pq.Array(statusStrings(models.ActiveStatuses)),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active orders: %w", err)
	}
	return n, nil
}

// Lines возвращает позиции заказа вместе с названием и ценой товара.
func (r *OrderRepository) Lines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pp.title, pp.price, oi.qty
		 FROM order_items oi
		 JOIN product_position pp ON pp.id = oi.position_id
		 WHERE oi.order_id=$1
		 ORDER BY pp.title`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.Title, &l.Price, &l.Qty); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// TotalSum — сумма заказа в минорных единицах до вычета бонусов.
func (r *OrderRepository) TotalSum(ctx context.Context, orderID int64) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(pp.price * oi.qty)
		 FROM order_items oi
		 JOIN product_position pp ON pp.id = oi.position_id
		 WHERE oi.order_id=$1`,
		orderID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("order total: %w", err)
	}
	return total.Int64, nil
}

// SetClaim записывает идентификатор заявки службы доставки.
func (r *OrderRepository) SetClaim(ctx context.Context, orderID int64, claimID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE buyer_orders SET claim_id=$2 WHERE id=$1`, orderID, claimID)
	if err != nil {
		return fmt.Errorf("set claim: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownOrder
	}
	return nil
}

// MarkPaid прикладывает к заказу метаданные платежа и время оплаты.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID int64, info json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE buyer_orders SET payment_info=$2, payment_date=NOW() WHERE id=$1`,
		orderID, []byte(info))
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownOrder
	}
	return nil
}

func collectOrders(rows *sql.Rows) ([]*models.Order, error) {
	var res []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func statusStrings(group []models.OrderStatus) []string {
	out := make([]string, len(group))
	for i, s := range group {
		out[i] = string(s)
	}
	return out
}

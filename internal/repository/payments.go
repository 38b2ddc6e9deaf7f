package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Record создаёт платёжную попытку в статусе pending. Идентификатор
// платёжного шлюза уникален: повтор с тем же gatewayID отклоняется.
func (r *PaymentRepository) Record(ctx context.Context, userID int64, orderID sql.NullInt64, amount decimal.Decimal, gatewayID string) (*models.Payment, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidConstraint
	}
	p := &models.Payment{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO payments (user_id, order_id, amount, gateway_id, status)
		 VALUES ($1,$2,$3,$4,'pending')
		 RETURNING id, user_id, order_id, amount, gateway_id, status`,
		userID, orderID, amount, gatewayID,
	).Scan(&p.ID, &p.UserID, &p.OrderID, &p.Amount, &p.GatewayID, &p.Status)
	if err != nil {
		switch {
		case isUniqueViolation(err, "payments_gateway_id_key"):
			return nil, ErrDuplicateGatewayID
		case isForeignKeyViolation(err, "payments_user_id_fkey"):
			return nil, ErrUnknownUser
		case isForeignKeyViolation(err, "payments_order_id_fkey"):
			return nil, ErrUnknownOrder
		case isCheckViolation(err):
			return nil, ErrInvalidConstraint
		}
		return nil, fmt.Errorf("record payment: %w", constraintError(err))
	}
	return p, nil
}

// Settle переводит платёж из pending в succeeded или canceled. Условное
// обновление по текущему статусу исключает гонку двух параллельных
// обработчиков: выигрывает ровно один.
func (r *PaymentRepository) Settle(ctx context.Context, gatewayID string, status models.PaymentStatus) (*models.Payment, error) {
	if !status.Terminal() {
		return nil, ErrIllegalTransition
	}
	p := &models.Payment{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE payments SET status=$2
		 WHERE gateway_id=$1 AND status='pending'
		 RETURNING id, user_id, order_id, amount, gateway_id, status`,
		gatewayID, status,
	).Scan(&p.ID, &p.UserID, &p.OrderID, &p.Amount, &p.GatewayID, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := r.GetByGatewayID(ctx, gatewayID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, ErrUnknownPayment
		}
		return nil, ErrIllegalTransition
	}
	if err != nil {
		return nil, fmt.Errorf("settle payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error) {
	p := &models.Payment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, order_id, amount, gateway_id, status
		 FROM payments WHERE gateway_id=$1`,
		gatewayID,
	).Scan(&p.ID, &p.UserID, &p.OrderID, &p.Amount, &p.GatewayID, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by gateway id: %w", err)
	}
	return p, nil
}

// ListByOrder — все платёжные попытки по заказу (их может быть несколько).
func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, order_id, amount, gateway_id, status
		 FROM payments WHERE order_id=$1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments by order: %w", err)
	}
	defer rows.Close()

	var res []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.OrderID, &p.Amount, &p.GatewayID, &p.Status); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

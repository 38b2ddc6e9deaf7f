package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrDuplicateExternalID = errors.New("external id already registered")
	ErrUnknownUser         = errors.New("user not found")
	ErrUnknownProduct      = errors.New("product not found")
	ErrUnknownOrder        = errors.New("order not found")
	ErrUnknownPayment      = errors.New("payment not found")
	ErrUnknownWarehouse    = errors.New("warehouse not found")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidConstraint   = errors.New("value violates a column constraint")
	ErrEmptyCart           = errors.New("order must contain at least one item")
	ErrInsufficientStock   = errors.New("not enough stock for requested quantity")
	ErrReferencedByOrder   = errors.New("product is referenced by an order")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrDuplicateGatewayID  = errors.New("gateway id already registered")
	ErrConstraintViolation = errors.New("constraint violation")
)

// Коды ошибок PostgreSQL, по которым нарушения ограничений
// превращаются в типизированные ошибки слоя хранения.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pqErrorCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func pqConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	return pqErrorCode(err) == pgUniqueViolation && pqConstraint(err) == constraint
}

func isForeignKeyViolation(err error, constraint string) bool {
	return pqErrorCode(err) == pgForeignKeyViolation && pqConstraint(err) == constraint
}

func isCheckViolation(err error) bool {
	return pqErrorCode(err) == pgCheckViolation
}

// constraintError переводит неразобранные нарушения ограничений в общий
// ErrConstraintViolation; прочие ошибки возвращает как есть.
func constraintError(err error) error {
	switch pqErrorCode(err) {
	case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation:
		return ErrConstraintViolation
	}
	return err
}

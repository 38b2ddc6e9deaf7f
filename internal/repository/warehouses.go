package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
)

type WarehouseRepository struct {
	db *sql.DB
}

func NewWarehouseRepository(db *sql.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

const warehouseColumns = `id, name, address, latitude, longitude, contact_name, contact_phone,
	porch, floor, apartment, comment, is_active, is_default`

// Create добавляет склад. Флаг is_default защищён частичным уникальным
// индексом: второй склад по умолчанию не пройдёт даже при параллельной
// вставке.
func (r *WarehouseRepository) Create(ctx context.Context, w *models.Warehouse) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO warehouses (name, address, latitude, longitude, contact_name, contact_phone,
		                         porch, floor, apartment, comment, is_active, is_default)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		w.Name, w.Address, w.Latitude, w.Longitude, w.ContactName, w.ContactPhone,
		w.Porch, w.Floor, w.Apartment, w.Comment, w.IsActive, w.IsDefault,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "warehouses_one_default_idx") {
			return 0, ErrConstraintViolation
		}
		return 0, fmt.Errorf("create warehouse: %w", constraintError(err))
	}
	return id, nil
}

// SetDefault транзакционно переносит флаг склада по умолчанию на склад id.
func (r *WarehouseRepository) SetDefault(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default warehouse: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE warehouses SET is_default=FALSE WHERE is_default`); err != nil {
		return fmt.Errorf("clear default warehouse: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE warehouses SET is_default=TRUE WHERE id=$1`, id)
	if err != nil {
		if isUniqueViolation(err, "warehouses_one_default_idx") {
			return ErrConstraintViolation
		}
		return fmt.Errorf("set default warehouse: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownWarehouse
	}
	return tx.Commit()
}

// Default — активный склад, помеченный как склад по умолчанию, nil если
// такого нет.
func (r *WarehouseRepository) Default(ctx context.Context) (*models.Warehouse, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE is_default AND is_active LIMIT 1`)
	w, err := scanWarehouse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get default warehouse: %w", err)
	}
	return w, nil
}

func (r *WarehouseRepository) GetByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE id=$1`, id)
	w, err := scanWarehouse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get warehouse by id: %w", err)
	}
	return w, nil
}

func (r *WarehouseRepository) List(ctx context.Context) ([]*models.Warehouse, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	var res []*models.Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

// UpdateLocation обновляет геокоординаты склада.
func (r *WarehouseRepository) UpdateLocation(ctx context.Context, id int64, lat, lon float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE warehouses SET latitude=$2, longitude=$3 WHERE id=$1`, id, lat, lon)
	if err != nil {
		return fmt.Errorf("update warehouse location: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownWarehouse
	}
	return nil
}

// Текстовые поля склада, доступные для точечного обновления.
var warehouseTextFields = map[string]bool{
	"name":          true,
	"address":       true,
	"contact_name":  true,
	"contact_phone": true,
	"porch":         true,
	"floor":         true,
	"apartment":     true,
	"comment":       true,
}

// UpdateField обновляет одно текстовое поле склада по белому списку имён.
func (r *WarehouseRepository) UpdateField(ctx context.Context, id int64, field, value string) error {
	if !warehouseTextFields[field] {
		return ErrConstraintViolation
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE warehouses SET %q=$1 WHERE id=$2`, field), value, id)
	if err != nil {
		return fmt.Errorf("update warehouse field: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownWarehouse
	}
	return nil
}

func (r *WarehouseRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE warehouses SET is_active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("set warehouse active: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownWarehouse
	}
	return nil
}

func scanWarehouse(row interface{ Scan(dest ...any) error }) (*models.Warehouse, error) {
	w := &models.Warehouse{}
	err := row.Scan(
		&w.ID, &w.Name, &w.Address, &w.Latitude, &w.Longitude, &w.ContactName, &w.ContactPhone,
		&w.Porch, &w.Floor, &w.Apartment, &w.Comment, &w.IsActive, &w.IsDefault,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (int64, error) {
	if p.Price < 0 || p.Quantity < 0 {
		return 0, ErrInvalidConstraint
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO product_position (title, price, quantity, weight_kg, length_cm, width_cm, height_cm, image)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		p.Title, p.Price, p.Quantity, p.WeightKg, p.LengthCm, p.WidthCm, p.HeightCm, p.Image,
	).Scan(&id)
	if err != nil {
		if isCheckViolation(err) {
			return 0, ErrInvalidConstraint
		}
		return 0, fmt.Errorf("create product: %w", constraintError(err))
	}
	return id, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	if p.Price < 0 || p.Quantity < 0 {
		return ErrInvalidConstraint
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE product_position
		 SET title=$2, price=$3, quantity=$4, weight_kg=$5, length_cm=$6, width_cm=$7, height_cm=$8, image=$9
		 WHERE id=$1`,
		p.ID, p.Title, p.Price, p.Quantity, p.WeightKg, p.LengthCm, p.WidthCm, p.HeightCm, p.Image,
	)
	if err != nil {
		if isCheckViolation(err) {
			return ErrInvalidConstraint
		}
		return fmt.Errorf("update product: %w", constraintError(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownProduct
	}
	return nil
}

// Delete удаляет позицию каталога. Позиция, на которую ссылается хотя бы
// один заказ, защищена на уровне схемы (ON DELETE RESTRICT).
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_position WHERE id=$1`, id)
	if err != nil {
		if isForeignKeyViolation(err, "order_items_position_id_fkey") {
			return ErrReferencedByOrder
		}
		return fmt.Errorf("delete product: %w", constraintError(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownProduct
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	p := &models.Product{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, price, quantity, weight_kg, length_cm, width_cm, height_cm, image
		 FROM product_position WHERE id=$1`,
		id,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Quantity, &p.WeightKg, &p.LengthCm, &p.WidthCm, &p.HeightCm, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// ListAvailable возвращает позиции с ненулевым остатком.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, price, quantity, weight_kg, length_cm, width_cm, height_cm, image
		 FROM product_position WHERE quantity > 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var res []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Quantity,
			&p.WeightKg, &p.LengthCm, &p.WidthCm, &p.HeightCm, &p.Image); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

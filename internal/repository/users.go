package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create регистрирует нового пользователя по внешнему идентификатору.
func (r *UserRepository) Create(ctx context.Context, externalID int64) (*models.User, error) {
	u := &models.User{ExternalID: externalID}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_info (tg_user_id) VALUES ($1) RETURNING id`,
		externalID,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err, "user_info_tg_user_id_key") {
			return nil, ErrDuplicateExternalID
		}
		return nil, fmt.Errorf("create user: %w", constraintError(err))
	}
	return u, nil
}

// GetByExternalID — возвращает пользователя по внешнему идентификатору,
// nil если пользователь не зарегистрирован.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tg_user_id FROM user_info WHERE tg_user_id=$1`,
		externalID,
	).Scan(&u.ID, &u.ExternalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by external id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tg_user_id FROM user_info WHERE id=$1`,
		id,
	).Scan(&u.ID, &u.ExternalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// Delete удаляет пользователя. Профиль, заказы и платежи удаляются каскадно
// на уровне схемы; у платежей, привязанных к чужим заказам, связь обнуляется.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_info WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", constraintError(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownUser
	}
	return nil
}

// UpsertProfile создаёт или обновляет анкету покупателя (1:1 к пользователю).
func (r *UserRepository) UpsertProfile(ctx context.Context, p *models.BuyerProfile) error {
	query := `INSERT INTO buyer_info (user_id, name_surname, tel_num, tg_username, address, porch, floor, apartment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id) DO UPDATE
			SET name_surname = EXCLUDED.name_surname,
			    tel_num      = EXCLUDED.tel_num,
			    tg_username  = EXCLUDED.tg_username,
			    address      = EXCLUDED.address,
			    porch        = EXCLUDED.porch,
			    floor        = EXCLUDED.floor,
			    apartment    = EXCLUDED.apartment`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Name, p.Phone, p.Username, p.Address, p.Porch, p.Floor, p.Apartment,
	)
	if err != nil {
		if isForeignKeyViolation(err, "buyer_info_user_id_fkey") {
			return ErrUnknownUser
		}
		return fmt.Errorf("upsert buyer profile: %w", constraintError(err))
	}
	return nil
}

func (r *UserRepository) GetProfile(ctx context.Context, userID int64) (*models.BuyerProfile, error) {
	p := &models.BuyerProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, name_surname, tel_num, tg_username, address, porch, floor, apartment, bonus_num
		 FROM buyer_info WHERE user_id=$1`,
		userID,
	).Scan(&p.UserID, &p.Name, &p.Phone, &p.Username, &p.Address, &p.Porch, &p.Floor, &p.Apartment, &p.Bonus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get buyer profile: %w", err)
	}
	return p, nil
}

func (r *UserRepository) UpdateAddress(ctx context.Context, userID int64, address string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE buyer_info SET address=$2 WHERE user_id=$1`,
		userID, address,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownUser
	}
	return nil
}

// Bonuses возвращает бонусный баланс покупателя; 0 если анкета не заведена.
func (r *UserRepository) Bonuses(ctx context.Context, userID int64) (int64, error) {
	var bonus int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(bonus_num, 0) FROM buyer_info WHERE user_id=$1`,
		userID,
	).Scan(&bonus)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get bonuses: %w", err)
	}
	return bonus, nil
}

// AddBonuses начисляет (или списывает при отрицательном amount) бонусы.
func (r *UserRepository) AddBonuses(ctx context.Context, userID int64, amount int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE buyer_info SET bonus_num = bonus_num + $2 WHERE user_id=$1`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("add bonuses: %w", constraintError(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownUser
	}
	return nil
}

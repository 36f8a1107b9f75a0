package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopmate/backend/internal/database"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopspring/decimal"
)

const userColumns = `id, name, email, password, role, avatar, reset_password_token, reset_password_expire, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.Role,
		&user.Avatar,
		&user.ResetPasswordToken,
		&user.ResetPasswordExpire,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func CreateUser(ctx context.Context, db *sql.DB, name, email, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, name, email, passwordHash))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

// UpdateProfile changes name and email, and the avatar when one is supplied.
func UpdateProfile(ctx context.Context, db *sql.DB, id int64, name, email string, avatar *models.Image) (*models.User, error) {
	var (
		row *sql.Row
	)
	if avatar == nil {
		row = db.QueryRowContext(ctx, `
			UPDATE users SET name = $1, email = $2
			WHERE id = $3
			RETURNING `+userColumns, name, email, id)
	} else {
		row = db.QueryRowContext(ctx, `
			UPDATE users SET name = $1, email = $2, avatar = $3
			WHERE id = $4
			RETURNING `+userColumns, name, email, *avatar, id)
	}

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

func UpdatePassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

func SetResetToken(ctx context.Context, db *sql.DB, email, tokenHash string, expire time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE users
		SET reset_password_token = $1, reset_password_expire = $2
		WHERE email = $3`,
		tokenHash, expire, email)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

func ClearResetToken(ctx context.Context, db *sql.DB, email string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE users
		SET reset_password_token = NULL, reset_password_expire = NULL
		WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// GetUserByResetToken matches an unexpired reset token hash.
func GetUserByResetToken(ctx context.Context, db *sql.DB, tokenHash string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_password_token = $1 AND reset_password_expire > NOW()`

	user, err := scanUser(db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}

	return user, nil
}

// ResetPassword sets a new password hash and clears the reset token fields.
func ResetPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) (*models.User, error) {
	query := `
		UPDATE users
		SET password = $1, reset_password_token = NULL, reset_password_expire = NULL
		WHERE id = $2
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, passwordHash, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("reset password: %w", err)
	}

	return user, nil
}

func ListUsers(ctx context.Context, db *sql.DB, page int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	offset := (page - 1) * PageSize
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(users, total, page, PageSize), nil
}

// DeleteUser removes the user and returns the deleted row so callers can
// release the hosted avatar asset.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	query := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}

	return user, nil
}

type DashboardStats struct {
	TotalUsers    int64           `json:"total_users"`
	TotalProducts int64           `json:"total_products"`
	TotalOrders   int64           `json:"total_orders"`
	PaidRevenue   decimal.Decimal `json:"paid_revenue"`
	OutOfStock    int64           `json:"out_of_stock"`
}

func GetDashboardStats(ctx context.Context, db *sql.DB) (*DashboardStats, error) {
	stats := &DashboardStats{}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(o.total_price), 0)
			 FROM orders o
			 JOIN payments p ON p.order_id = o.id
			 WHERE p.payment_status = 'Paid'),
			(SELECT COUNT(*) FROM products WHERE stock = 0)`

	err := db.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalProducts,
		&stats.TotalOrders,
		&stats.PaidRevenue,
		&stats.OutOfStock,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return stats, nil
}

package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barter-hub/barter-hub/internal/domain/user"
)

const userColumns = `id, user_id, username, display_name, email, phone, password_hash, status, reputation_sum, reputation_count, created_at, updated_at`

// UserRepository implements user.Repository.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users
		(user_id, username, display_name, email, phone, password_hash, status, reputation_sum, reputation_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, u.UserID, u.Username, u.DisplayName, u.Email, u.Phone, u.PasswordHash, u.Status, u.ReputationSum, u.ReputationCount, u.CreatedAt, u.UpdatedAt)
	if err := row.Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return err
	}
	return nil
}

// Update leaves the reputation aggregate alone; AddRating owns it.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	res, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE users
		SET username=$1, display_name=$2, email=$3, phone=$4, password_hash=$5, status=$6, updated_at=$7
		WHERE user_id=$8
	`, u.Username, u.DisplayName, u.Email, u.Phone, u.PasswordHash, u.Status, u.UpdatedAt, u.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, userID)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	return scanUser(row)
}

func (r *UserRepository) AddRating(ctx context.Context, userID uuid.UUID, score int, at time.Time) error {
	res, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE users
		SET reputation_sum = reputation_sum + $1, reputation_count = reputation_count + 1, updated_at=$2
		WHERE user_id=$3
	`, score, at, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.UserID, &u.Username, &u.DisplayName, &u.Email, &u.Phone, &u.PasswordHash, &u.Status, &u.ReputationSum, &u.ReputationCount, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

var _ user.Repository = (*UserRepository)(nil)

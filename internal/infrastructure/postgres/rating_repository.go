package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/rating"
)

// RatingRepository implements rating.Repository.
type RatingRepository struct {
	pool *pgxpool.Pool
}

func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// Create relies on the (exchange_id, rater_id) unique index to reject a
// second rating that raced past Exists.
func (r *RatingRepository) Create(ctx context.Context, rt *rating.Rating) error {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO ratings (rating_id, exchange_id, rater_id, rated_user_id, score, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, rt.RatingID, rt.ExchangeID, rt.RaterID, rt.RatedUserID, rt.Score, rt.Comment, rt.CreatedAt)
	if err := row.Scan(&rt.ID); err != nil {
		if isUniqueViolation(err) {
			return exchange.ErrAlreadyRated
		}
		return err
	}
	return nil
}

func (r *RatingRepository) Exists(ctx context.Context, exchangeID, raterID uuid.UUID) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM ratings WHERE exchange_id=$1 AND rater_id=$2)
	`, exchangeID, raterID).Scan(&exists)
	return exists, err
}

func (r *RatingRepository) ListByRatedUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*rating.Rating, error) {
	w := &where{}
	w.add("rated_user_id=?", userID)
	query := `SELECT id, rating_id, exchange_id, rater_id, rated_user_id, score, comment, created_at FROM ratings` +
		w.String() + ` ORDER BY created_at DESC` + w.page(limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ratings := make([]*rating.Rating, 0)
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

func scanRating(row pgx.Row) (*rating.Rating, error) {
	var rt rating.Rating
	if err := row.Scan(&rt.ID, &rt.RatingID, &rt.ExchangeID, &rt.RaterID, &rt.RatedUserID, &rt.Score, &rt.Comment, &rt.CreatedAt); err != nil {
		return nil, err
	}
	return &rt, nil
}

var _ rating.Repository = (*RatingRepository)(nil)

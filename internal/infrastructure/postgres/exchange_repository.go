package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
)

const exchangeColumns = `id, exchange_id, owner_id, requester_id, requested_item_id, offered, status, confirmed_by_owner, confirmed_by_requester, message, version, created_at, updated_at`

// ExchangeRepository implements exchange.Repository. Offered entities are
// stored as one JSONB array so ad-hoc entries keep their order and images.
type ExchangeRepository struct {
	pool *pgxpool.Pool
}

func NewExchangeRepository(pool *pgxpool.Pool) *ExchangeRepository {
	return &ExchangeRepository{pool: pool}
}

func (r *ExchangeRepository) Create(ctx context.Context, ex *exchange.Exchange) error {
	offered, err := json.Marshal(ex.Offered)
	if err != nil {
		return err
	}
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO exchanges
		(exchange_id, owner_id, requester_id, requested_item_id, offered, status, confirmed_by_owner, confirmed_by_requester, message, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1,$10,$11)
		RETURNING id, version
	`, ex.ExchangeID, ex.OwnerID, ex.RequesterID, ex.RequestedItemID, offered, ex.Status, ex.ConfirmedByOwner, ex.ConfirmedByRequester, ex.Message, ex.CreatedAt, ex.UpdatedAt)
	return row.Scan(&ex.ID, &ex.Version)
}

func (r *ExchangeRepository) Update(ctx context.Context, ex *exchange.Exchange) error {
	offered, err := json.Marshal(ex.Offered)
	if err != nil {
		return err
	}
	q := conn(ctx, r.pool)
	res, err := q.Exec(ctx, `
		UPDATE exchanges
		SET offered=$1, status=$2, confirmed_by_owner=$3, confirmed_by_requester=$4, message=$5, updated_at=$6, version=version+1
		WHERE exchange_id=$7 AND version=$8
	`, offered, ex.Status, ex.ConfirmedByOwner, ex.ConfirmedByRequester, ex.Message, ex.UpdatedAt, ex.ExchangeID, ex.Version)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM exchanges WHERE exchange_id=$1)`, ex.ExchangeID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return exchange.ErrNotFound
		}
		return exchange.ErrConcurrentUpdate
	}
	ex.Version++
	return nil
}

func (r *ExchangeRepository) GetByID(ctx context.Context, exchangeID uuid.UUID) (*exchange.Exchange, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE exchange_id=$1`, exchangeID)
	return scanExchange(row)
}

func (r *ExchangeRepository) List(ctx context.Context, filter exchange.Filter, limit, offset int) ([]*exchange.Exchange, error) {
	w := exchangeWhere(filter)
	query := `SELECT ` + exchangeColumns + ` FROM exchanges` + w.String() + ` ORDER BY id DESC` + w.page(limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	exchanges := make([]*exchange.Exchange, 0)
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

func (r *ExchangeRepository) Count(ctx context.Context, filter exchange.Filter) (int, error) {
	w := exchangeWhere(filter)
	var count int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM exchanges`+w.String(), w.args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func exchangeWhere(filter exchange.Filter) *where {
	w := &where{}
	if filter.OwnerID != nil {
		w.add("owner_id=?", *filter.OwnerID)
	}
	if filter.RequesterID != nil {
		w.add("requester_id=?", *filter.RequesterID)
	}
	if filter.ParticipantID != nil {
		w.add("(owner_id=? OR requester_id=?)", *filter.ParticipantID)
	}
	if filter.RequestedItemID != nil {
		w.add("requested_item_id=?", *filter.RequestedItemID)
	}
	if filter.Status != nil {
		w.add("status=?", *filter.Status)
	}
	return w
}

func scanExchange(row pgx.Row) (*exchange.Exchange, error) {
	var ex exchange.Exchange
	var offered json.RawMessage
	if err := row.Scan(&ex.ID, &ex.ExchangeID, &ex.OwnerID, &ex.RequesterID, &ex.RequestedItemID, &offered, &ex.Status, &ex.ConfirmedByOwner, &ex.ConfirmedByRequester, &ex.Message, &ex.Version, &ex.CreatedAt, &ex.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(offered, &ex.Offered); err != nil {
		return nil, err
	}
	return &ex, nil
}

var _ exchange.Repository = (*ExchangeRepository)(nil)

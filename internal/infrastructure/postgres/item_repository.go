package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barter-hub/barter-hub/internal/domain/item"
)

const itemColumns = `id, item_id, owner_id, title, description, category, item_condition, images, status, wished_item, created_at, updated_at`

// ItemRepository implements item.Repository.
type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) Create(ctx context.Context, i *item.Item) error {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO items
		(item_id, owner_id, title, description, category, item_condition, images, status, wished_item, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, i.ItemID, i.OwnerID, i.Title, i.Description, i.Category, i.Condition, i.Images, i.Status, i.WishedItem, i.CreatedAt, i.UpdatedAt)
	return row.Scan(&i.ID)
}

func (r *ItemRepository) Update(ctx context.Context, i *item.Item) error {
	res, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE items
		SET title=$1, description=$2, category=$3, item_condition=$4, images=$5, status=$6, wished_item=$7, updated_at=$8
		WHERE item_id=$9
	`, i.Title, i.Description, i.Category, i.Condition, i.Images, i.Status, i.WishedItem, i.UpdatedAt, i.ItemID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return item.ErrNotFound
	}
	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE item_id=$1`, itemID)
	return scanItem(row)
}

func (r *ItemRepository) List(ctx context.Context, filter item.Filter, limit, offset int) ([]*item.Item, error) {
	var w where
	if filter.OwnerID != nil {
		w.add("owner_id=?", *filter.OwnerID)
	}
	if filter.Status != nil {
		w.add("status=?", *filter.Status)
	}
	if filter.Category != nil {
		w.add("category=?", *filter.Category)
	}
	query := `SELECT ` + itemColumns + ` FROM items` + w.String() + ` ORDER BY id DESC` + w.page(limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*item.Item, 0)
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (r *ItemRepository) UpdateStatus(ctx context.Context, itemID uuid.UUID, status item.Status, at time.Time) error {
	res, err := conn(ctx, r.pool).Exec(ctx, `UPDATE items SET status=$1, updated_at=$2 WHERE item_id=$3`, status, at, itemID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return item.ErrNotFound
	}
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, itemID uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM items WHERE item_id=$1`, itemID)
	return err
}

func scanItem(row pgx.Row) (*item.Item, error) {
	var i item.Item
	if err := row.Scan(&i.ID, &i.ItemID, &i.OwnerID, &i.Title, &i.Description, &i.Category, &i.Condition, &i.Images, &i.Status, &i.WishedItem, &i.CreatedAt, &i.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if i.Images == nil {
		i.Images = []string{}
	}
	return &i, nil
}

var _ item.Repository = (*ItemRepository)(nil)

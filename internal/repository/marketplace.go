package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

// ErrItemNotFound is returned when a marketplace item cannot be located.
var ErrItemNotFound = errors.New("item not found")

const itemColumns = `
	id, owner_id, title, description, price, category, status, created_at
`

// MarketplaceRepository handles marketplace listing persistence.
type MarketplaceRepository struct {
	db db.DBTX
}

// NewMarketplaceRepository creates a new MarketplaceRepository instance.
func NewMarketplaceRepository(dbtx db.DBTX) *MarketplaceRepository {
	return &MarketplaceRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *MarketplaceRepository) WithTx(dbtx db.DBTX) *MarketplaceRepository {
	return &MarketplaceRepository{db: dbtx}
}

func scanItem(row pgx.Row) (*model.MarketplaceItem, error) {
	var it model.MarketplaceItem
	err := row.Scan(
		&it.ID,
		&it.OwnerID,
		&it.Title,
		&it.Description,
		&it.Price,
		&it.Category,
		&it.Status,
		&it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Create inserts an active listing.
func (r *MarketplaceRepository) Create(ctx context.Context, ownerID uuid.UUID, title, description string, price decimal.Decimal, category *string) (*model.MarketplaceItem, error) {
	const query = `
		INSERT INTO marketplace_items (owner_id, title, description, price, category, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'active', NOW())
		RETURNING ` + itemColumns

	it, err := scanItem(r.db.QueryRow(ctx, query, ownerID, title, description, price, category))
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return it, nil
}

// GetByID retrieves an item by ID.
func (r *MarketplaceRepository) GetByID(ctx context.Context, id int64) (*model.MarketplaceItem, error) {
	const query = `SELECT ` + itemColumns + ` FROM marketplace_items WHERE id = $1`

	it, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return it, nil
}

// GetByIDForUpdate retrieves an item and locks its row. Buy uses this so two
// concurrent purchases of the same listing serialize on the status check.
func (r *MarketplaceRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.MarketplaceItem, error) {
	const query = `SELECT ` + itemColumns + ` FROM marketplace_items WHERE id = $1 FOR UPDATE`

	it, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}

	return it, nil
}

// ListActive returns active listings, optionally filtered by category.
func (r *MarketplaceRepository) ListActive(ctx context.Context, category *string, limit int) ([]*model.MarketplaceItem, error) {
	query := `SELECT ` + itemColumns + ` FROM marketplace_items WHERE status = 'active'`
	args := []any{}
	i := 1

	if category != nil {
		query += fmt.Sprintf(" AND category = $%d", i)
		args = append(args, *category)
		i++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", i)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*model.MarketplaceItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// SetStatus transitions a listing's state.
func (r *MarketplaceRepository) SetStatus(ctx context.Context, id int64, status string) error {
	const query = `UPDATE marketplace_items SET status = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

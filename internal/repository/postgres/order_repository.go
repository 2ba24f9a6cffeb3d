package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

var orderColumns = []string{
	"id::text", "customer_name", "created_at", "completed_at", "images", "image_base64",
	"note", "price::text", "status", "source", "tags",
}

// OrderRepository provides database operations for orders
type OrderRepository struct {
	pool    *pgxpool.Pool
	builder sq.StatementBuilderType
}

// NewOrderRepository creates a new OrderRepository instance
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{
		pool:    pool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// List returns the user's orders newest first, narrowed by filter.
func (r *OrderRepository) List(ctx context.Context, userID uuid.UUID, filter repository.OrderFilter) ([]*domain.Order, error) {
	b := r.builder.Select(orderColumns...).From("orders").Where(sq.Eq{"user_id": userID})
	query, args, err := repository.NewestFirst(filter.Apply(b, repository.AsTime)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders for user %s: %w", userID, err)
	}

	return orders, nil
}

// GetOrderByID retrieves one of the user's orders.
func (r *OrderRepository) GetOrderByID(ctx context.Context, userID uuid.UUID, id string) (*domain.Order, error) {
	notFound := &repository.NotFoundError{Resource: repository.OrderResource, Key: "id", Value: id}
	if !domain.IsPermanentID(id) {
		return nil, notFound
	}

	query, args, err := r.builder.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	order, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to retrieve order with id %s: %w", id, err)
	}

	return order, nil
}

// UpsertOrder inserts the order or overwrites the stored copy (last write wins).
// A row owned by another user is never touched and reports not found.
func (r *OrderRepository) UpsertOrder(ctx context.Context, userID uuid.UUID, order *domain.Order) error {
	const query = `
INSERT INTO orders (id, user_id, customer_name, created_at, completed_at, images, image_base64, note, price, status, source, tags, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8::numeric, $9, $10, $11, now())
ON CONFLICT (id) DO UPDATE SET
  customer_name = EXCLUDED.customer_name,
  created_at    = EXCLUDED.created_at,
  completed_at  = EXCLUDED.completed_at,
  images        = EXCLUDED.images,
  image_base64  = NULL,
  note          = EXCLUDED.note,
  price         = EXCLUDED.price,
  status        = EXCLUDED.status,
  source        = EXCLUDED.source,
  tags          = EXCLUDED.tags,
  updated_at    = now()
WHERE orders.user_id = EXCLUDED.user_id`

	tag, err := r.pool.Exec(
		ctx,
		query,
		order.ID,
		userID,
		order.CustomerName,
		order.CreatedAt,
		order.CompletedAt,
		nonNil(order.Images),
		order.Note,
		order.Price.String(),
		string(order.Status),
		nullable(string(order.Source)),
		nonNil(order.Tags),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", order.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return &repository.NotFoundError{Resource: repository.OrderResource, Key: "id", Value: order.ID}
	}

	return nil
}

// DeleteOrder removes one of the user's orders.
func (r *OrderRepository) DeleteOrder(ctx context.Context, userID uuid.UUID, id string) error {
	notFound := &repository.NotFoundError{Resource: repository.OrderResource, Key: "id", Value: id}
	if !domain.IsPermanentID(id) {
		return notFound
	}

	tag, err := r.pool.Exec(ctx, "DELETE FROM orders WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return notFound
	}

	return nil
}

// ReferencedImages returns every image reference held by any order.
func (r *OrderRepository) ReferencedImages(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, "SELECT unnest(images) FROM orders")
	if err != nil {
		return nil, fmt.Errorf("failed to list referenced images: %w", err)
	}

	refs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect referenced images: %w", err)
	}

	set := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		set[ref] = struct{}{}
	}

	return set, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order       domain.Order
		completedAt *time.Time
		images      []string
		legacy      *string
		price       string
		status      string
		source      *string
		tags        []string
	)

	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.CreatedAt,
		&completedAt,
		&images,
		&legacy,
		&order.Note,
		&price,
		&status,
		&source,
		&tags,
	)
	if err != nil {
		return nil, err
	}

	order.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode price of order %s: %w", order.ID, err)
	}

	order.CompletedAt = completedAt
	order.Images = domain.NormalizeImages(images, deref(legacy))
	order.Status = domain.Status(status)
	order.Source = domain.Source(deref(source))
	order.Tags = nonNil(tags)

	return &order, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

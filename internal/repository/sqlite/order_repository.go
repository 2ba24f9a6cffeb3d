package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/repository"
)

var orderColumns = []string{
	"id", "customer_name", "created_at", "completed_at", "images", "image_base64",
	"note", "price", "status", "source", "tags",
}

// OrderRepository stores orders in a local SQLite file. Arrays are kept as JSON text
// and timestamps as epoch milliseconds.
type OrderRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func (r *OrderRepository) List(ctx context.Context, userID uuid.UUID, filter repository.OrderFilter) ([]*domain.Order, error) {
	b := r.builder.Select(orderColumns...).From("orders").Where(sq.Eq{"user_id": userID.String()})
	query, args, err := repository.NewestFirst(filter.Apply(b, repository.AsUnixMilli)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *OrderRepository) GetOrderByID(ctx context.Context, userID uuid.UUID, id string) (*domain.Order, error) {
	query, args, err := r.builder.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id, "user_id": userID.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &repository.NotFoundError{Resource: repository.OrderResource, Key: "id", Value: id}
		}
		return nil, fmt.Errorf("failed to retrieve order with id %s: %w", id, err)
	}

	return order, nil
}

// UpsertOrder inserts or overwrites the order; rows of other users are left alone.
func (r *OrderRepository) UpsertOrder(ctx context.Context, userID uuid.UUID, order *domain.Order) error {
	const query = `
INSERT INTO orders (id, user_id, customer_name, created_at, completed_at, images, image_base64, note, price, status, source, tags, updated_at)
VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  customer_name = excluded.customer_name,
  created_at    = excluded.created_at,
  completed_at  = excluded.completed_at,
  images        = excluded.images,
  image_base64  = NULL,
  note          = excluded.note,
  price         = excluded.price,
  status        = excluded.status,
  source        = excluded.source,
  tags          = excluded.tags,
  updated_at    = excluded.updated_at
WHERE orders.user_id = excluded.user_id`

	images, err := encodeList(order.Images)
	if err != nil {
		return err
	}

	tags, err := encodeList(order.Tags)
	if err != nil {
		return err
	}

	var completedAt any
	if order.CompletedAt != nil {
		completedAt = order.CompletedAt.UnixMilli()
	}

	var source any
	if order.Source != "" {
		source = string(order.Source)
	}

	res, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		userID.String(),
		order.CustomerName,
		order.CreatedAt.UnixMilli(),
		completedAt,
		images,
		order.Note,
		order.Price.String(),
		string(order.Status),
		source,
		tags,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", order.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", order.ID, err)
	}

	if affected == 0 {
		return &repository.NotFoundError{Resource: repository.OrderResource, Key: "id", Value: order.ID}
	}

	return nil
}

func (r *OrderRepository) DeleteOrder(ctx context.Context, userID uuid.UUID, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ? AND user_id = ?", id, userID.String())
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}

	if affected == 0 {
		return &repository.NotFoundError{Resource: repository.OrderResource, Key: "id", Value: id}
	}

	return nil
}

func (r *OrderRepository) ReferencedImages(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT value FROM orders, json_each(orders.images)")
	if err != nil {
		return nil, fmt.Errorf("failed to list referenced images: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan referenced image: %w", err)
		}
		set[ref] = struct{}{}
	}

	return set, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		order       domain.Order
		createdAt   int64
		completedAt sql.NullInt64
		images      string
		legacy      sql.NullString
		price       string
		status      string
		source      sql.NullString
		tags        string
	)

	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&createdAt,
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

	imageList, err := decodeList(images)
	if err != nil {
		return nil, fmt.Errorf("decode images of order %s: %w", order.ID, err)
	}

	order.Tags, err = decodeList(tags)
	if err != nil {
		return nil, fmt.Errorf("decode tags of order %s: %w", order.ID, err)
	}

	order.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode price of order %s: %w", order.ID, err)
	}

	order.CreatedAt = time.UnixMilli(createdAt)
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64)
		order.CompletedAt = &t
	}

	order.Images = domain.NormalizeImages(imageList, legacy.String)
	order.Status = domain.Status(status)
	order.Source = domain.Source(source.String)

	return &order, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}

	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}

	return string(data), nil
}

func decodeList(data string) ([]string, error) {
	values := make([]string, 0)
	if data == "" {
		return values, nil
	}

	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, err
	}

	return values, nil
}

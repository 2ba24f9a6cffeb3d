package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
	"github.com/CameronXie/tailor-ledger/internal/repository"
	"github.com/CameronXie/tailor-ledger/internal/storage"
)

// Repository persists order rows scoped by owner.
type Repository interface {
	List(ctx context.Context, userID uuid.UUID, filter repository.OrderFilter) ([]*domain.Order, error)
	GetOrderByID(ctx context.Context, userID uuid.UUID, id string) (*domain.Order, error)
	UpsertOrder(ctx context.Context, userID uuid.UUID, order *domain.Order) error
	DeleteOrder(ctx context.Context, userID uuid.UUID, id string) error
}

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Delete(ctx context.Context, keys ...string) error
}

// Store keeps order rows and their photos consistent: inline photos are
// uploaded before the row that references them is written.
type Store struct {
	repo    Repository
	objects ObjectStore
	logger  *slog.Logger
}

func NewStore(repo Repository, objects ObjectStore, logger *slog.Logger) *Store {
	return &Store{repo: repo, objects: objects, logger: logger}
}

func (s *Store) List(ctx context.Context, userID uuid.UUID, filter repository.OrderFilter) ([]*domain.Order, error) {
	return s.repo.List(ctx, userID, filter)
}

func (s *Store) Get(ctx context.Context, userID uuid.UUID, id string) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, userID, id)
}

// Save validates and persists order, returning the stored version. Orders
// without a permanent id get a fresh UUID and every inline photo is replaced
// by its storage path. The input is not modified.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, order *domain.Order) (*domain.Order, error) {
	o := order.Clone()
	if err := o.Validate(); err != nil {
		return nil, err
	}

	if !domain.IsPermanentID(o.ID) {
		o.ID = uuid.NewString()
	}

	if err := s.uploadInline(ctx, userID.String(), o); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertOrder(ctx, userID, o); err != nil {
		return nil, err
	}

	return o, nil
}

// uploadInline replaces inline images with storage references in place. An
// index already held by a kept storage image of the order is never reused.
func (s *Store) uploadInline(ctx context.Context, userID string, o *domain.Order) error {
	prefix := imagepipeline.OrderPrefix(userID, o.ID)

	used := make(map[int]struct{})
	for _, ref := range o.Images {
		parsed := imagepipeline.ParseReference(ref)
		if parsed.Kind != imagepipeline.KindStorage || !strings.HasPrefix(parsed.Key, prefix) {
			continue
		}

		if n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(parsed.Key, prefix), ".jpg")); err == nil {
			used[n] = struct{}{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	next := 0
	for i, ref := range o.Images {
		if imagepipeline.ParseReference(ref).Kind != imagepipeline.KindInline {
			continue
		}

		index := i
		if _, taken := used[index]; taken {
			for {
				if _, taken := used[next]; !taken {
					break
				}
				next++
			}
			index = next
		}
		used[index] = struct{}{}

		key := imagepipeline.StorageKey(userID, o.ID, index)
		o.Images[i] = imagepipeline.StorageReference(key)

		g.Go(func() error {
			data, _, err := imagepipeline.DecodeInline(ref)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}

			if err := s.objects.Put(gctx, key, data, "image/jpeg"); err != nil {
				return fmt.Errorf("upload image %d: %w", i, err)
			}

			return nil
		})
	}

	return g.Wait()
}

// Remove deletes the row, then makes a best-effort attempt to delete the
// order's photos. Storage failures are logged, not returned.
func (s *Store) Remove(ctx context.Context, userID uuid.UUID, id string) error {
	if err := s.repo.DeleteOrder(ctx, userID, id); err != nil {
		return err
	}

	prefix := imagepipeline.OrderPrefix(userID.String(), id)
	objects, err := s.objects.List(ctx, prefix)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list order images", "order_id", id, "error", err)
		return nil
	}

	if len(objects) == 0 {
		return nil
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}

	if err := s.objects.Delete(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "failed to delete order images", "order_id", id, "error", err)
	}

	return nil
}

// Toggle flips an order between pending and completed.
func (s *Store) Toggle(ctx context.Context, userID uuid.UUID, id string, now time.Time) (*domain.Order, error) {
	o, err := s.repo.GetOrderByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	o.Toggle(now)
	return s.Save(ctx, userID, o)
}

// Import saves every usable record and returns how many were stored. Records
// without an id or images are skipped; a record that fails to save is logged
// and skipped.
func (s *Store) Import(ctx context.Context, userID uuid.UUID, records []domain.Record) (int, error) {
	imported := 0
	for i := range records {
		if err := ctx.Err(); err != nil {
			return imported, err
		}

		rec := &records[i]
		if rec.ID == "" || rec.Variant() == domain.NoImages {
			continue
		}

		o, err := rec.Order()
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable record", "record_id", rec.ID, "error", err)
			continue
		}

		if _, err := s.Save(ctx, userID, o); err != nil {
			s.logger.ErrorContext(ctx, "failed to import record", "record_id", rec.ID, "error", err)
			continue
		}

		imported++
	}

	return imported, nil
}

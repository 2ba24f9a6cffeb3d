package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
	"github.com/CameronXie/tailor-ledger/internal/storage"
)

const (
	DefaultSchedule    = "@daily"
	DefaultGracePeriod = 24 * time.Hour
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// References lists every image reference held by any order row.
type References interface {
	ReferencedImages(ctx context.Context) (map[string]struct{}, error)
}

type Objects interface {
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Delete(ctx context.Context, keys ...string) error
}

type Result struct {
	Scanned int `json:"scanned"`
	Removed int `json:"removed"`
}

// Reconciler removes photos no order points at. Objects younger than the
// grace period are left alone since a save may still be writing its row.
type Reconciler struct {
	refs    References
	objects Objects
	grace   time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func New(refs References, objects Objects, grace time.Duration, logger *slog.Logger) *Reconciler {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	return &Reconciler{
		refs:    refs,
		objects: objects,
		grace:   grace,
		logger:  logger,
		now:     time.Now,
	}
}

// Run performs one sweep.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	objects, err := r.objects.List(ctx, "")
	if err != nil {
		return Result{}, fmt.Errorf("failed to list objects: %w", err)
	}

	// rows are read after the listing so a row written in between still protects its objects
	refs, err := r.refs.ReferencedImages(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read references: %w", err)
	}

	cutoff := r.now().Add(-r.grace)
	orphans := make([]string, 0)
	for _, obj := range objects {
		if _, ok := refs[imagepipeline.StorageReference(obj.Key)]; ok {
			continue
		}

		if obj.LastModified.After(cutoff) {
			continue
		}

		orphans = append(orphans, obj.Key)
	}

	result := Result{Scanned: len(objects)}
	if len(orphans) == 0 {
		return result, nil
	}

	if err := r.objects.Delete(ctx, orphans...); err != nil {
		return result, fmt.Errorf("failed to delete orphans: %w", err)
	}

	result.Removed = len(orphans)
	return result, nil
}

// Schedule registers the sweep on a cron scheduler running in loc. The
// caller starts and stops the returned scheduler.
func (r *Reconciler) Schedule(spec string, loc *time.Location) (*cron.Cron, error) {
	if spec == "" {
		spec = DefaultSchedule
	}

	sched := cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	if _, err := sched.AddFunc(spec, r.sweep); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}

	return sched, nil
}

func (r *Reconciler) sweep() {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconcile panicked", "error", err)
		}
	}()

	result, err := r.Run(context.Background())
	if err != nil {
		r.logger.Error("reconcile failed", "error", err)
		return
	}

	r.logger.Info("reconcile finished", "scanned", result.Scanned, "removed", result.Removed)
}

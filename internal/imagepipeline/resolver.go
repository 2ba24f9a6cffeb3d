package imagepipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/CameronXie/tailor-ledger/internal/storage"
)

const (
	SignedURLExpiry = time.Hour
	ThumbWidth      = 320

	// cached URLs are dropped this long before the signature expires
	cacheMargin = 5 * time.Minute
)

// Size selects the rendition a storage reference resolves to.
type Size string

const (
	SizeFull  Size = "full"
	SizeThumb Size = "thumb"
)

func ParseSize(s string) Size {
	if s == string(SizeThumb) {
		return SizeThumb
	}

	return SizeFull
}

func (s Size) width() int {
	if s == SizeThumb {
		return ThumbWidth
	}

	return 0
}

type Signer interface {
	SignedURL(ctx context.Context, key string, opts storage.SignOptions) (string, error)
}

type URLCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, url string, ttl time.Duration) error
}

// Resolver turns stored image references into displayable URLs.
type Resolver struct {
	signer Signer
	cache  URLCache
	logger *slog.Logger
}

// NewResolver builds a Resolver. cache may be nil.
func NewResolver(signer Signer, cache URLCache, logger *slog.Logger) *Resolver {
	return &Resolver{signer: signer, cache: cache, logger: logger}
}

// Resolve returns inline, URL and unknown references unchanged and signs storage paths.
func (r *Resolver) Resolve(ctx context.Context, ref string, size Size) (string, error) {
	parsed := ParseReference(ref)
	if parsed.Kind != KindStorage {
		return ref, nil
	}

	width := size.width()
	cacheKey := parsed.Key + "@" + strconv.Itoa(width)

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, cacheKey)
		if err != nil {
			r.logger.WarnContext(ctx, "signed url cache read failed", "key", parsed.Key, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	signed, err := r.signer.SignedURL(ctx, parsed.Key, storage.SignOptions{Expiry: SignedURLExpiry, Width: width})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", parsed.Key, err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, signed, SignedURLExpiry-cacheMargin); err != nil {
			r.logger.WarnContext(ctx, "signed url cache write failed", "key", parsed.Key, "error", err)
		}
	}

	return signed, nil
}

// ResolveAll resolves refs in order. A reference that fails to resolve is logged
// and kept as is.
func (r *Resolver) ResolveAll(ctx context.Context, refs []string, size Size) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		resolved, err := r.Resolve(ctx, ref, size)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to resolve image", "index", i, "error", err)
			out[i] = ref
			continue
		}
		out[i] = resolved
	}

	return out
}

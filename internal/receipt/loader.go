package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"

	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
)

const maxRemoteImageBytes = 32 << 20

type ObjectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ImageLoader fetches and decodes any kind of image reference.
type ImageLoader struct {
	objects ObjectGetter
	client  *http.Client
}

func NewImageLoader(objects ObjectGetter, client *http.Client) *ImageLoader {
	if client == nil {
		client = http.DefaultClient
	}

	return &ImageLoader{objects: objects, client: client}
}

func (l *ImageLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	data, err := l.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return img, nil
}

func (l *ImageLoader) fetch(ctx context.Context, ref string) ([]byte, error) {
	parsed := imagepipeline.ParseReference(ref)

	switch parsed.Kind {
	case imagepipeline.KindInline:
		data, _, err := imagepipeline.DecodeInline(ref)
		return data, err
	case imagepipeline.KindStorage:
		return l.objects.Get(ctx, parsed.Key)
	case imagepipeline.KindURL:
		return l.download(ctx, ref)
	default:
		return nil, fmt.Errorf("unsupported image reference %q", ref)
	}
}

func (l *ImageLoader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	return data, nil
}

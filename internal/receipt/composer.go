package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/fonts"
	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
)

const (
	DefaultLoadTimeout = 30 * time.Second
	jpegQuality        = 85
)

var ErrNoImages = errors.New("order has no images")

type Loader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Composer stacks an order's photos and appends a text panel with the order details.
type Composer struct {
	loader   Loader
	fonts    *fonts.Set
	timeout  time.Duration
	location *time.Location
}

// NewComposer builds a Composer. Each image load is bounded by timeout;
// dates are printed in loc.
func NewComposer(loader Loader, typefaces *fonts.Set, timeout time.Duration, loc *time.Location) *Composer {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}

	if loc == nil {
		loc = time.Local
	}

	return &Composer{loader: loader, fonts: typefaces, timeout: timeout, location: loc}
}

// Compose renders the receipt as JPEG bytes.
func (c *Composer) Compose(ctx context.Context, order *domain.Order) ([]byte, error) {
	if len(order.Images) == 0 {
		return nil, ErrNoImages
	}

	images, err := c.loadAll(ctx, order.Images)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, c.draw(order, images), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}

	return buf.Bytes(), nil
}

// ComposeDataURL is Compose wrapped in a JPEG data URL.
func (c *Composer) ComposeDataURL(ctx context.Context, order *domain.Order) (string, error) {
	data, err := c.Compose(ctx, order)
	if err != nil {
		return "", err
	}

	return imagepipeline.EncodeInline(data, "image/jpeg"), nil
}

func (c *Composer) loadAll(ctx context.Context, refs []string) ([]image.Image, error) {
	images := make([]image.Image, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			img, err := c.load(gctx, ref)
			if err != nil {
				return fmt.Errorf("load image %d: %w", i, err)
			}
			images[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return images, nil
}

// load gives up after the timeout even if the loader ignores ctx.
func (c *Composer) load(ctx context.Context, ref string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}

	done := make(chan result, 1)
	go func() {
		img, err := c.loader.Load(ctx, ref)
		done <- result{img: img, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && (r.img == nil || r.img.Bounds().Empty()) {
			return nil, errors.New("empty image")
		}
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Composer) draw(order *domain.Order, images []image.Image) image.Image {
	sizes := make([]image.Point, len(images))
	for i, img := range images {
		sizes[i] = img.Bounds().Size()
	}

	width := sizes[0].X
	padding := paddingFor(width)
	bold := fonts.Face(c.fonts.Bold, padding)
	regular := fonts.Face(c.fonts.Regular, padding)

	dc := gg.NewContext(width, 1)
	// notes are drawn with the regular face, so they are measured with it too
	dc.SetFontFace(regular)
	noteLines := wrapNote(noteText(order.Note), float64(width)-2*padding, func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	})

	l := newLayout(sizes, noteLines)
	w := float64(l.width)

	dc = gg.NewContext(l.width, l.height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	y := 0
	for i, img := range images {
		dc.DrawImage(imaging.Resize(img, l.width, l.imageHeights[i], imaging.Lanczos), 0, y)
		y += l.imageHeights[i]

		if i < len(images)-1 {
			dc.SetHexColor("#f3f4f6")
			dc.DrawRectangle(0, float64(y-dividerHeight), w, dividerHeight)
			dc.Fill()
		}
	}

	boxY := float64(l.imagesHeight)
	if order.Status == domain.StatusCompleted {
		dc.SetHexColor("#22c55e")
	} else {
		dc.SetHexColor("#ea580c")
	}
	dc.DrawRectangle(0, boxY, w, statusBarHeight)
	dc.Fill()

	textY := boxY + l.padding + l.fontSize

	dc.SetFontFace(bold)
	dc.SetHexColor("#1f2937")
	dc.DrawString("顾客: "+customerLabel(order.CustomerName), l.padding, textY)

	priceLine := "价格: ¥" + order.Price.String()
	priceWidth, _ := dc.MeasureString(priceLine)
	dc.SetHexColor("#dc2626")
	dc.DrawString(priceLine, w-l.padding-priceWidth, textY)

	textY += l.lineHeight

	dc.SetHexColor("#6b7280")
	dc.DrawString(fmt.Sprintf("时间: %s (%s)", order.CreatedAt.In(c.location).Format("2006/1/2"), sourceLabel(order.Source)), l.padding, textY)

	textY += l.padding / 2

	dc.SetHexColor("#e5e7eb")
	dc.SetLineWidth(2)
	dc.DrawLine(l.padding, textY+separatorHeight/2, w-l.padding, textY+separatorHeight/2)
	dc.Stroke()

	textY += separatorHeight + l.fontSize/2

	dc.SetFontFace(regular)
	dc.SetHexColor("#374151")
	for _, line := range l.noteLines {
		dc.DrawString(line, l.padding, textY)
		textY += l.lineHeight
	}

	return dc.Image()
}

func customerLabel(name string) string {
	if name == "" {
		return "未填写"
	}

	return name
}

func sourceLabel(s domain.Source) string {
	if s == domain.SourceOffline {
		return "线下实体"
	}

	return "线上闲鱼"
}

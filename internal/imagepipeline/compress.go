package imagepipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Policy maps a source size class to a target width and JPEG quality.
// MaxBytes is an exclusive upper bound; zero matches any size.
type Policy struct {
	MaxBytes int64
	MaxWidth int
	Quality  int
}

var DefaultPolicies = []Policy{
	{MaxBytes: 1 << 20, MaxWidth: 1600, Quality: 85},
	{MaxBytes: 4 << 20, MaxWidth: 1200, Quality: 80},
	{MaxWidth: 1024, Quality: 70},
}

type Compressor struct {
	policies []Policy
}

// NewCompressor uses DefaultPolicies when none are given.
func NewCompressor(policies ...Policy) *Compressor {
	if len(policies) == 0 {
		policies = DefaultPolicies
	}

	return &Compressor{policies: policies}
}

func (c *Compressor) policyFor(size int64) Policy {
	for _, p := range c.policies {
		if p.MaxBytes == 0 || size < p.MaxBytes {
			return p
		}
	}

	return c.policies[len(c.policies)-1]
}

// Compress turns an uploaded photo into an inline JPEG data URL.
func (c *Compressor) Compress(data []byte) (string, error) {
	out, err := c.CompressBytes(data)
	if err != nil {
		return "", err
	}

	return EncodeInline(out, "image/jpeg"), nil
}

// CompressBytes is Compress without the data URL wrapping.
func (c *Compressor) CompressBytes(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode image: empty input")
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	policy := c.policyFor(int64(len(data)))

	img := flatten(src)
	if img.Bounds().Dx() > policy.MaxWidth {
		img = imaging.Resize(img, policy.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(policy.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

// flatten draws img onto an opaque white canvas; JPEG has no alpha channel.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

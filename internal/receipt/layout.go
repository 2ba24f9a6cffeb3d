package receipt

import (
	"image"
	"math"
	"strings"

	"github.com/CameronXie/tailor-ledger/internal/fonts"
)

const (
	minPadding      = 28
	separatorHeight = 20
	statusBarHeight = 8
	dividerHeight   = 2
)

// layout holds every measurement of a receipt before anything is drawn.
type layout struct {
	width        int
	padding      float64
	fontSize     float64
	lineHeight   float64
	imageHeights []int
	imagesHeight int
	noteLines    []string
	headerHeight float64
	panelHeight  int
	height       int
}

func paddingFor(width int) float64 {
	return math.Max(minPadding, math.Floor(float64(width)/22))
}

// newLayout sizes a receipt for images of the given dimensions. The first
// image fixes the canvas width; the rest are scaled to it.
func newLayout(sizes []image.Point, noteLines []string) layout {
	l := layout{width: sizes[0].X, noteLines: noteLines}
	l.padding = paddingFor(l.width)
	l.fontSize = l.padding
	l.lineHeight = l.fontSize * 1.5

	l.imageHeights = make([]int, len(sizes))
	for i, s := range sizes {
		l.imageHeights[i] = scaledHeight(l.width, s)
		l.imagesHeight += l.imageHeights[i]
	}

	l.headerHeight = l.lineHeight*2 + l.padding/2
	l.panelHeight = int(math.Ceil(
		l.padding + l.headerHeight + separatorHeight + float64(len(noteLines))*l.lineHeight + l.padding,
	))
	l.height = l.imagesHeight + l.panelHeight

	return l
}

func scaledHeight(width int, size image.Point) int {
	h := int(math.Round(float64(width) * float64(size.Y) / float64(size.X)))
	return max(h, 1)
}

// noteText is the panel body before wrapping.
func noteText(note string) string {
	if note == "" {
		note = "无"
	}

	return "备注: " + note
}

// wrapNote splits text on newlines and wraps each line per character so
// that every line measures narrower than maxWidth.
func wrapNote(text string, maxWidth float64, measure func(string) float64) []string {
	lines := make([]string, 0)
	for _, raw := range strings.Split(text, "\n") {
		lines = append(lines, fonts.Wrap(raw, maxWidth, measure)...)
	}

	return lines
}

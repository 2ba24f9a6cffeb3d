package fonts

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Set holds the regular and bold typefaces used for rendered text. Go fonts
// carry no CJK glyphs, so production setups point at a font such as Noto Sans SC.
type Set struct {
	Regular *truetype.Font
	Bold    *truetype.Font
	Custom  bool
}

// Load parses TTF files from disk. An empty regular path selects the bundled
// Go fonts; an empty bold path reuses the regular face.
func Load(regularPath, boldPath string) (*Set, error) {
	if regularPath == "" {
		return Default()
	}

	regular, err := parseFile(regularPath)
	if err != nil {
		return nil, err
	}

	bold := regular
	if boldPath != "" {
		if bold, err = parseFile(boldPath); err != nil {
			return nil, err
		}
	}

	return &Set{Regular: regular, Bold: bold, Custom: true}, nil
}

func Default() (*Set, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go regular font: %w", err)
	}

	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go bold font: %w", err)
	}

	return &Set{Regular: regular, Bold: bold}, nil
}

func parseFile(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}

	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}

	return f, nil
}

// Face returns a face whose size is in pixels.
func Face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// Wrap breaks text per character so that every line measures narrower than
// maxWidth. A line always holds at least one character; empty text yields
// one empty line.
func Wrap(text string, maxWidth float64, measure func(string) float64) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{""}
	}

	lines := make([]string, 0, 1)
	current := string(runes[0])
	for _, r := range runes[1:] {
		candidate := current + string(r)
		if measure(candidate) < maxWidth {
			current = candidate
			continue
		}

		lines = append(lines, current)
		current = string(r)
	}

	return append(lines, current)
}

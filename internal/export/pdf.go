package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/image/font"

	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/fonts"
)

const (
	DefaultTitle = "小刘裁缝铺订单汇总"
	RowsPerPage  = 14

	pageWidth   = 800
	pagePadding = 24
	cellPadding = 8
	tableFont   = 12
	tableLine   = 18
	noteLimit   = 60
)

type column struct {
	title string
	width float64
	value func(o *domain.Order, loc *time.Location) string
}

var pdfColumns = []column{
	{title: "顾客", width: 130, value: func(o *domain.Order, _ *time.Location) string {
		if o.CustomerName == "" {
			return "未填写"
		}
		return o.CustomerName
	}},
	{title: "金额 / 状态", width: 140, value: func(o *domain.Order, _ *time.Location) string {
		status := "待处理"
		if o.Status == domain.StatusCompleted {
			status = "已完成"
		}
		return formatCurrency(o.Price) + " · " + status
	}},
	{title: "日期", width: 140, value: func(o *domain.Order, loc *time.Location) string {
		return o.CreatedAt.In(loc).Format(dateLayout + " " + timeLayout)
	}},
	{title: "标签", width: 120, value: func(o *domain.Order, _ *time.Location) string {
		if len(o.Tags) == 0 {
			return "-"
		}
		return strings.Join(o.Tags, " / ")
	}},
	{title: "备注", width: pageWidth - 2*pagePadding - 130 - 140 - 140 - 120, value: func(o *domain.Order, _ *time.Location) string {
		return strings.ReplaceAll(TruncateNote(o.Note), "\n", " ")
	}},
}

// PDFRenderer lays orders out as table pages and embeds each page as an
// image, so CJK text needs no font embedding in the PDF itself.
type PDFRenderer struct {
	fonts    *fonts.Set
	title    string
	location *time.Location
	now      func() time.Time
}

func NewPDFRenderer(typefaces *fonts.Set, title string, loc *time.Location) *PDFRenderer {
	if title == "" {
		title = DefaultTitle
	}

	return &PDFRenderer{fonts: typefaces, title: title, location: loc, now: time.Now}
}

// Write renders an A4 document with RowsPerPage orders per page. The title
// and summary appear on the first page only.
func (p *PDFRenderer) Write(w io.Writer, orders []*domain.Order) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(p.title, true)
	doc.SetCreator("tailor-ledger", true)

	docWidth, _ := doc.GetPageSize()
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	for i, page := range p.Pages(orders) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, page); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("page-%d", i)
		doc.RegisterImageOptionsReader(name, opts, &buf)

		b := page.Bounds()
		doc.AddPage()
		doc.ImageOptions(name, 0, 0, docWidth, docWidth*float64(b.Dy())/float64(b.Dx()), false, opts, 0, "")
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

// Pages renders one image per chunk of RowsPerPage orders. An empty export
// still yields the title page.
func (p *PDFRenderer) Pages(orders []*domain.Order) []image.Image {
	summary := p.summary(orders)

	chunks := chunk(orders, RowsPerPage)
	if len(chunks) == 0 {
		chunks = [][]*domain.Order{nil}
	}

	pages := make([]image.Image, 0, len(chunks))
	for i, c := range chunks {
		pages = append(pages, p.renderPage(c, i == 0, summary))
	}

	return pages
}

func (p *PDFRenderer) summary(orders []*domain.Order) string {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Price)
	}

	return fmt.Sprintf(
		"生成时间：%s · 订单数量：%d · 累计金额：%s",
		p.now().In(p.location).Format(dateLayout+" "+timeLayout),
		len(orders),
		formatCurrency(total),
	)
}

func (p *PDFRenderer) renderPage(orders []*domain.Order, first bool, summary string) image.Image {
	regular := fonts.Face(p.fonts.Regular, tableFont)
	bold := fonts.Face(p.fonts.Bold, tableFont)

	measure := gg.NewContext(1, 1)
	measure.SetFontFace(regular)

	cells := make([][][]string, len(orders))
	rowHeights := make([]float64, len(orders))
	for i, o := range orders {
		cells[i] = make([][]string, len(pdfColumns))
		lines := 1
		for j, col := range pdfColumns {
			cells[i][j] = fonts.Wrap(col.value(o, p.location), col.width-2*cellPadding, func(s string) float64 {
				w, _ := measure.MeasureString(s)
				return w
			})
			lines = max(lines, len(cells[i][j]))
		}
		rowHeights[i] = float64(lines)*tableLine + 2*cellPadding
	}

	headerHeight := 0.0
	if first {
		headerHeight = 24 + 8 + 14 + 16
	}

	headRow := float64(tableLine + 2*cellPadding)
	height := pagePadding + headerHeight + headRow
	for _, h := range rowHeights {
		height += h
	}
	height += pagePadding

	dc := gg.NewContext(pageWidth, int(math.Ceil(height)))
	dc.SetHexColor("#ffffff")
	dc.Clear()

	y := float64(pagePadding)
	if first {
		dc.SetFontFace(fonts.Face(p.fonts.Bold, 24))
		dc.SetHexColor("#111827")
		dc.DrawString(p.title, pagePadding, y+24)

		dc.SetFontFace(fonts.Face(p.fonts.Regular, 14))
		dc.SetHexColor("#6b7280")
		dc.DrawString(summary, pagePadding, y+24+8+14)

		y += headerHeight
	}

	x := float64(pagePadding)
	dc.SetHexColor("#374151")
	for _, col := range pdfColumns {
		drawCell(dc, bold, []string{col.title}, x, y, col.width, col.title != "备注")
		x += col.width
	}
	y += headRow
	rule(dc, "#e5e7eb", y)

	for i := range orders {
		x = pagePadding
		for j, col := range pdfColumns {
			dc.SetHexColor("#111827")
			if col.title == "备注" {
				dc.SetHexColor("#4b5563")
			}
			face := regular
			if j == 0 {
				face = bold
			}
			drawCell(dc, face, cells[i][j], x, y, col.width, j != 0 && col.title != "备注")
			x += col.width
		}
		y += rowHeights[i]
		rule(dc, "#f3f4f6", y)
	}

	return dc.Image()
}

func drawCell(dc *gg.Context, face font.Face, lines []string, x, y, width float64, centered bool) {
	dc.SetFontFace(face)
	for i, line := range lines {
		baseline := y + cellPadding + float64(i+1)*tableLine - (tableLine-tableFont)/2
		if centered {
			dc.DrawStringAnchored(line, x+width/2, baseline, 0.5, 0)
			continue
		}
		dc.DrawString(line, x+cellPadding, baseline)
	}
}

func rule(dc *gg.Context, color string, y float64) {
	dc.SetHexColor(color)
	dc.SetLineWidth(1)
	dc.DrawLine(pagePadding, y, pageWidth-pagePadding, y)
	dc.Stroke()
}

// TruncateNote shortens a note to its first 60 characters.
func TruncateNote(note string) string {
	if note == "" {
		return "无备注"
	}

	runes := []rune(note)
	if len(runes) > noteLimit {
		return string(runes[:noteLimit]) + "..."
	}

	return note
}

func formatCurrency(d decimal.Decimal) string {
	return "¥" + d.StringFixed(2)
}

func chunk(orders []*domain.Order, size int) [][]*domain.Order {
	chunks := make([][]*domain.Order, 0, (len(orders)+size-1)/size)
	for start := 0; start < len(orders); start += size {
		chunks = append(chunks, orders[start:min(start+size, len(orders))])
	}

	return chunks
}

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

// Row is one spreadsheet line of an order. Column titles come from the csv tags.
type Row struct {
	Customer    string `csv:"顾客姓名/单号"`
	Source      string `csv:"来源"`
	Status      string `csv:"状态"`
	Tags        string `csv:"标签"`
	Price       string `csv:"价格(元)"`
	Date        string `csv:"日期"`
	Time        string `csv:"具体时间"`
	CompletedOn string `csv:"发货时间"`
	ImageCount  string `csv:"图片数量"`
	Note        string `csv:"衣物备注"`
	ID          string `csv:"系统ID"`
}

var columns = []string{
	"顾客姓名/单号", "来源", "状态", "标签", "价格(元)", "日期", "具体时间", "发货时间", "图片数量", "衣物备注", "系统ID",
}

const (
	dateLayout = "2006/1/2"
	timeLayout = "15:04:05"
)

func NewRow(o *domain.Order, loc *time.Location) Row {
	created := o.CreatedAt.In(loc)

	completed := "-"
	if o.CompletedAt != nil {
		completed = o.CompletedAt.In(loc).Format(dateLayout)
	}

	status := "待处理"
	if o.Status == domain.StatusCompleted {
		status = "已发货"
	}

	source := "线上"
	if o.Source == domain.SourceOffline {
		source = "线下"
	}

	return Row{
		Customer:    o.CustomerName,
		Source:      source,
		Status:      status,
		Tags:        strings.Join(o.Tags, ";"),
		Price:       o.Price.String(),
		Date:        created.Format(dateLayout),
		Time:        created.Format(timeLayout),
		CompletedOn: completed,
		ImageCount:  fmt.Sprintf("%d张", len(o.Images)),
		Note:        o.Note,
		ID:          o.ID,
	}
}

func (r Row) values() []string {
	return []string{
		r.Customer, r.Source, r.Status, r.Tags, r.Price, r.Date, r.Time, r.CompletedOn, r.ImageCount, r.Note, r.ID,
	}
}

func rows(orders []*domain.Order, loc *time.Location) []*Row {
	out := make([]*Row, 0, len(orders))
	for _, o := range orders {
		r := NewRow(o, loc)
		out = append(out, &r)
	}

	return out
}

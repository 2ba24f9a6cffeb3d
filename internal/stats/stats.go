package stats

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CameronXie/tailor-ledger/internal/domain"
)

// OverdueDays is how long an order may stay pending before it counts as overdue.
const OverdueDays = 5

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencySerious  Urgency = "serious"
	UrgencyCritical Urgency = "critical"
)

// UrgencyOf grades a pending order by age. Completed orders are always normal.
func UrgencyOf(o *domain.Order, now time.Time) Urgency {
	if o.Status != domain.StatusPending {
		return UrgencyNormal
	}

	days := o.PendingDays(now)
	switch {
	case days > 10:
		return UrgencyCritical
	case days > 7:
		return UrgencySerious
	case days > OverdueDays:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	PendingCount int             `json:"pendingCount"`
	OverdueCount int             `json:"overdueCount"`
}

func Summarize(orders []*domain.Order, now time.Time) Summary {
	s := Summary{TotalIncome: decimal.Zero}
	for _, o := range orders {
		s.TotalIncome = s.TotalIncome.Add(o.Price)
		if o.Status != domain.StatusPending {
			continue
		}

		s.PendingCount++
		if o.PendingDays(now) > OverdueDays {
			s.OverdueCount++
		}
	}

	return s
}

type DayIncome struct {
	Label  string          `json:"label"`
	Date   string          `json:"date"`
	Income decimal.Decimal `json:"income"`
}

// Trend returns the income of the seven calendar days ending today, oldest first.
func Trend(orders []*domain.Order, now time.Time, loc *time.Location) []DayIncome {
	today := startOfDay(now, loc)
	byDay := make(map[string]decimal.Decimal)
	for _, o := range orders {
		key := dayKey(o.CreatedAt, loc)
		if sum, ok := byDay[key]; ok {
			byDay[key] = sum.Add(o.Price)
		} else {
			byDay[key] = o.Price
		}
	}

	points := make([]DayIncome, 0, 7)
	for i := 6; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		key := dayKey(d, loc)
		income, ok := byDay[key]
		if !ok {
			income = decimal.Zero
		}
		points = append(points, DayIncome{Label: d.Format("01/02"), Date: key, Income: income})
	}

	return points
}

type DayTasks struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	Pending   int    `json:"pending"`
	Completed int    `json:"completed"`
}

var weekdayNames = [...]string{"日", "一", "二", "三", "四", "五", "六"}

// StartOfWeek returns the Monday midnight of the week containing t.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	d := startOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekCalendar counts pending and completed orders per day of the Monday-start
// week containing weekOf.
func WeekCalendar(orders []*domain.Order, weekOf time.Time, loc *time.Location) []DayTasks {
	start := StartOfWeek(weekOf, loc)

	days := make([]DayTasks, 7)
	index := make(map[string]int, 7)
	for i := range days {
		d := start.AddDate(0, 0, i)
		days[i] = DayTasks{Date: dayKey(d, loc), Weekday: weekdayNames[d.Weekday()]}
		index[days[i].Date] = i
	}

	for _, o := range orders {
		i, ok := index[dayKey(o.CreatedAt, loc)]
		if !ok {
			continue
		}

		if o.Status == domain.StatusCompleted {
			days[i].Completed++
		} else {
			days[i].Pending++
		}
	}

	return days
}

type WeekBucket struct {
	Name     string          `json:"name"`
	Range    string          `json:"range"`
	StartDay int             `json:"startDay"`
	EndDay   int             `json:"endDay"`
	Income   decimal.Decimal `json:"income"`
	Count    int             `json:"count"`
	OrderIDs []string        `json:"orderIds"`
}

type MonthSummary struct {
	Month       string          `json:"month"`
	TotalIncome decimal.Decimal `json:"totalIncome"`
	TotalCount  int             `json:"totalCount"`
	Weeks       []WeekBucket    `json:"weeks"`
}

var bucketNames = [...]string{"第一周", "第二周", "第三周", "第四周", "第五周"}

// Month groups the orders created in the month of monthOf into day-of-month
// buckets 1-7, 8-14, 15-21, 22-28 and 29 to month end. The last bucket is
// dropped when it earned nothing.
func Month(orders []*domain.Order, monthOf time.Time, loc *time.Location) MonthSummary {
	t := monthOf.In(loc)
	year, month := t.Year(), t.Month()

	buckets := make([]WeekBucket, len(bucketNames))
	for i := range buckets {
		start := i*7 + 1
		end := start + 6
		rng := fmt.Sprintf("%d日-%d日", start, end)
		if i == len(buckets)-1 {
			end = 31
			rng = "29日-月底"
		}
		buckets[i] = WeekBucket{
			Name:     bucketNames[i],
			Range:    rng,
			StartDay: start,
			EndDay:   end,
			Income:   decimal.Zero,
			OrderIDs: []string{},
		}
	}

	summary := MonthSummary{Month: fmt.Sprintf("%04d-%02d", year, int(month)), TotalIncome: decimal.Zero}
	for _, o := range orders {
		c := o.CreatedAt.In(loc)
		if c.Year() != year || c.Month() != month {
			continue
		}

		summary.TotalIncome = summary.TotalIncome.Add(o.Price)
		summary.TotalCount++

		b := &buckets[min((c.Day()-1)/7, len(buckets)-1)]
		b.Income = b.Income.Add(o.Price)
		b.Count++
		b.OrderIDs = append(b.OrderIDs, o.ID)
	}

	if last := buckets[len(buckets)-1]; !last.Income.IsPositive() {
		buckets = buckets[:len(buckets)-1]
	}
	summary.Weeks = buckets

	return summary
}

type Dashboard struct {
	Summary
	Trend []DayIncome  `json:"trend"`
	Week  []DayTasks   `json:"week"`
	Month MonthSummary `json:"month"`
}

func Build(orders []*domain.Order, now, weekOf, monthOf time.Time, loc *time.Location) Dashboard {
	return Dashboard{
		Summary: Summarize(orders, now),
		Trend:   Trend(orders, now, loc),
		Week:    WeekCalendar(orders, weekOf, loc),
		Month:   Month(orders, monthOf, loc),
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

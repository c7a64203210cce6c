package segments

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

type Segment string

const (
	VIP      Segment = "VIP Customers"
	Loyal    Segment = "Loyal Customers"
	New      Segment = "New Customers"
	AtRisk   Segment = "At Risk"
	Inactive Segment = "Inactive Customers"
)

var vipSpending = decimal.NewFromInt(500)

// Rule is one entry of the segmentation decision list.
type Rule struct {
	Segment Segment
	Match   func(days, purchases int, spending decimal.Decimal) bool
}

// Rules is evaluated top to bottom and the first match wins. The ranges
// overlap, so the order is part of the definition.
var Rules = []Rule{
	{VIP, func(days, purchases int, spending decimal.Decimal) bool {
		return days <= 30 && purchases >= 5 && spending.GreaterThan(vipSpending)
	}},
	{Loyal, func(days, purchases int, _ decimal.Decimal) bool {
		return days <= 60 && purchases >= 3
	}},
	{New, func(days, purchases int, _ decimal.Decimal) bool {
		return days <= 90 && purchases == 1
	}},
	{AtRisk, func(days, _ int, _ decimal.Decimal) bool {
		return days > 90 && days <= 180
	}},
	{Inactive, func(int, int, decimal.Decimal) bool {
		return true
	}},
}

// All lists every segment in rule order.
func All() []Segment {
	out := make([]Segment, len(Rules))
	for i, r := range Rules {
		out[i] = r.Segment
	}
	return out
}

func Classify(days, purchases int, spending decimal.Decimal) Segment {
	for _, r := range Rules {
		if r.Match(days, purchases, spending) {
			return r.Segment
		}
	}
	return Inactive
}

// Metrics summarises one customer. DaysSinceLastPurchase is nil when none of
// the customer's records carry a purchase timestamp; such customers match no
// recency rule and land in Inactive.
type Metrics struct {
	CustomerID            string          `json:"customer_id"`
	DaysSinceLastPurchase *int            `json:"days_since_last_purchase"`
	NumberOfPurchases     int             `json:"number_of_purchases"`
	TotalSpending         decimal.Decimal `json:"total_spending"`
	Segment               Segment         `json:"segment"`
}

func (m Metrics) classify() Segment {
	if m.DaysSinceLastPurchase == nil {
		return Inactive
	}
	return Classify(*m.DaysSinceLastPurchase, m.NumberOfPurchases, m.TotalSpending)
}

type accumulator struct {
	last     *time.Time
	lines    int
	spending decimal.Decimal
}

// ComputeMetrics reduces records to one Metrics per customer, ordered by
// customer id. Recency is measured against the latest purchase in records.
// NumberOfPurchases counts order lines, not distinct orders.
func ComputeMetrics(records []models.OrderLine) []Metrics {
	byCustomer := make(map[string]*accumulator)
	var latest time.Time
	haveLatest := false

	for i := range records {
		r := &records[i]
		if r.PurchasedAt != nil && (!haveLatest || r.PurchasedAt.After(latest)) {
			latest = *r.PurchasedAt
			haveLatest = true
		}
		if r.CustomerID == "" {
			continue
		}

		acc, ok := byCustomer[r.CustomerID]
		if !ok {
			acc = &accumulator{}
			byCustomer[r.CustomerID] = acc
		}
		acc.lines++
		if v, ok := r.TotalValue(); ok {
			acc.spending = acc.spending.Add(v)
		}
		if r.PurchasedAt != nil && (acc.last == nil || r.PurchasedAt.After(*acc.last)) {
			acc.last = r.PurchasedAt
		}
	}

	out := make([]Metrics, 0, len(byCustomer))
	for id, acc := range byCustomer {
		m := Metrics{
			CustomerID:        id,
			NumberOfPurchases: acc.lines,
			TotalSpending:     acc.spending,
		}
		if acc.last != nil && haveLatest {
			days := models.WholeDays(latest.Sub(*acc.last))
			m.DaysSinceLastPurchase = &days
		}
		m.Segment = m.classify()
		out = append(out, m)
	}

	slices.SortFunc(out, func(a, b Metrics) int {
		return cmp.Compare(a.CustomerID, b.CustomerID)
	})
	return out
}

// Counts returns the size of each non-empty segment, largest first. Equal
// counts keep rule order.
func Counts(metrics []Metrics) []models.SegmentCount {
	counts := make(map[Segment]int)
	for _, m := range metrics {
		counts[m.Segment]++
	}

	out := make([]models.SegmentCount, 0, len(counts))
	for _, s := range All() {
		if n := counts[s]; n > 0 {
			out = append(out, models.SegmentCount{Segment: string(s), Count: n})
		}
	}
	slices.SortStableFunc(out, func(a, b models.SegmentCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

// Stats returns per-segment averages for non-empty segments, ordered by
// segment name.
func Stats(metrics []Metrics) []models.SegmentStats {
	type totals struct {
		customers int
		daysSum   int
		daysCount int
		purchases int
		spending  decimal.Decimal
	}
	bySegment := make(map[Segment]*totals)
	for _, m := range metrics {
		t, ok := bySegment[m.Segment]
		if !ok {
			t = &totals{}
			bySegment[m.Segment] = t
		}
		t.customers++
		t.purchases += m.NumberOfPurchases
		t.spending = t.spending.Add(m.TotalSpending)
		if m.DaysSinceLastPurchase != nil {
			t.daysSum += *m.DaysSinceLastPurchase
			t.daysCount++
		}
	}

	out := make([]models.SegmentStats, 0, len(bySegment))
	for s, t := range bySegment {
		n := decimal.NewFromInt(int64(t.customers))
		stats := models.SegmentStats{
			Segment:          string(s),
			Customers:        t.customers,
			AvgPurchases:     float64(t.purchases) / float64(t.customers),
			AvgTotalSpending: t.spending.Div(n).InexactFloat64(),
		}
		if t.daysCount > 0 {
			avg := float64(t.daysSum) / float64(t.daysCount)
			stats.AvgDaysSinceLast = &avg
		}
		out = append(out, stats)
	}

	slices.SortFunc(out, func(a, b models.SegmentStats) int {
		return cmp.Compare(a.Segment, b.Segment)
	})
	return out
}

// Filter keeps the metrics of one segment; an empty segment keeps all.
func Filter(metrics []Metrics, segment Segment) []Metrics {
	if segment == "" {
		return metrics
	}
	var out []Metrics
	for _, m := range metrics {
		if m.Segment == segment {
			out = append(out, m)
		}
	}
	return out
}

func Parse(s string) (Segment, bool) {
	for _, seg := range All() {
		if string(seg) == s {
			return seg, true
		}
	}
	return "", false
}

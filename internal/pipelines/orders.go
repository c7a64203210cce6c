package pipelines

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

var weekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// monthKey numbers calendar months consecutively so spans can be walked
// without going through time.Time.
func monthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func monthLabel(key int) string {
	return fmt.Sprintf("%04d-%02d", key/12, key%12+1)
}

// Overview counts distinct ids. A count whose id column is absent from schema
// is left nil; the others are still reported.
func Overview(records []models.OrderLine, schema models.Schema) models.Overview {
	distinct := func(f models.Field, id func(*models.OrderLine) string) *int {
		if !schema.Has(f) {
			return nil
		}
		set := make(map[string]struct{})
		for i := range records {
			if v := id(&records[i]); v != "" {
				set[v] = struct{}{}
			}
		}
		n := len(set)
		return &n
	}

	return models.Overview{
		Orders:     distinct(models.FieldOrderID, func(r *models.OrderLine) string { return r.OrderID }),
		Products:   distinct(models.FieldProductID, func(r *models.OrderLine) string { return r.ProductID }),
		Customers:  distinct(models.FieldCustomerID, func(r *models.OrderLine) string { return r.CustomerID }),
		Sellers:    distinct(models.FieldSellerID, func(r *models.OrderLine) string { return r.SellerID }),
		OrderLines: len(records),
	}
}

// MonthlyOrders counts order lines per calendar month across the whole span
// from the first to the last purchase month. Months without orders are
// reported with a zero count.
func MonthlyOrders(records []models.OrderLine) []models.MonthlyCount {
	counts := make(map[int]int)
	first, last := math.MaxInt, math.MinInt
	for i := range records {
		if records[i].PurchasedAt == nil {
			continue
		}
		k := monthKey(*records[i].PurchasedAt)
		counts[k]++
		first = min(first, k)
		last = max(last, k)
	}

	out := []models.MonthlyCount{}
	for k := first; k <= last; k++ {
		out = append(out, models.MonthlyCount{Month: monthLabel(k), Count: counts[k]})
	}
	return out
}

// MonthlyOrdersByYear reports all twelve months of every year that has at
// least one purchase, zero filled, ordered by year then month.
func MonthlyOrdersByYear(records []models.OrderLine) []models.YearMonthCount {
	counts := make(map[int]int)
	years := make(map[int]struct{})
	for i := range records {
		if records[i].PurchasedAt == nil {
			continue
		}
		t := *records[i].PurchasedAt
		counts[monthKey(t)]++
		years[t.Year()] = struct{}{}
	}

	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	slices.Sort(sorted)

	out := make([]models.YearMonthCount, 0, len(sorted)*12)
	for _, y := range sorted {
		for m := time.January; m <= time.December; m++ {
			out = append(out, models.YearMonthCount{
				Year:      y,
				Month:     int(m),
				MonthName: m.String()[:3],
				Count:     counts[y*12+int(m)-1],
			})
		}
	}
	return out
}

// WeekdayOrders always returns seven rows, Monday through Sunday.
func WeekdayOrders(records []models.OrderLine) []models.WeekdayCount {
	var counts [7]int
	for i := range records {
		if d, ok := records[i].DayOfWeek(); ok {
			counts[d]++
		}
	}

	out := make([]models.WeekdayCount, 0, len(weekdays))
	for _, d := range weekdays {
		out = append(out, models.WeekdayCount{Day: d.String(), Count: counts[d]})
	}
	return out
}

// QuarterlyOrders counts order lines per quarter that has purchases, labelled
// "Q{quarter} {year}", in chronological order.
func QuarterlyOrders(records []models.OrderLine) []models.QuarterCount {
	counts := make(map[int]int)
	for i := range records {
		y, ok := records[i].Year()
		if !ok {
			continue
		}
		q, _ := records[i].Quarter()
		counts[y*4+q-1]++
	}

	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]models.QuarterCount, 0, len(keys))
	for _, k := range keys {
		y, q := k/4, k%4+1
		out = append(out, models.QuarterCount{
			Label:   fmt.Sprintf("Q%d %d", q, y),
			Year:    y,
			Quarter: q,
			Count:   counts[k],
		})
	}
	return out
}

// OrderValues buckets total values up to limit into equal-width bins spanning
// the observed range.
func OrderValues(records []models.OrderLine, limit float64, bins int) []models.ValueBin {
	var values []float64
	for i := range records {
		v, ok := records[i].TotalValue()
		if !ok {
			continue
		}
		if f := v.InexactFloat64(); f <= limit {
			values = append(values, f)
		}
	}

	out := []models.ValueBin{}
	if len(values) == 0 || bins <= 0 {
		return out
	}

	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		return append(out, models.ValueBin{Lower: lo, Upper: hi, Count: len(values)})
	}

	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		idx := min(int((v-lo)/width), bins-1)
		counts[idx]++
	}
	for i, n := range counts {
		out = append(out, models.ValueBin{
			Lower: lo + float64(i)*width,
			Upper: lo + float64(i+1)*width,
			Count: n,
		})
	}
	return out
}

// PaymentTypes counts order lines per payment type, most used first.
func PaymentTypes(records []models.OrderLine) []models.LabelCount {
	counts := make(map[string]int)
	for i := range records {
		if p := records[i].PaymentType; p != "" {
			counts[p]++
		}
	}

	out := make([]models.LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.LabelCount{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b models.LabelCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

package pipelines

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v float64) {
	m.sum += v
	m.n++
}

func (m meanAcc) row(group string) models.GroupMean {
	row := models.GroupMean{Group: group, Count: m.n}
	if m.n > 0 {
		mean := m.sum / float64(m.n)
		row.Mean = &mean
	}
	return row
}

// DeliveryByState averages fractional delivery days per customer state. A
// state whose records were never delivered keeps its row with a nil mean.
func DeliveryByState(records []models.OrderLine) []models.GroupMean {
	groups := make(map[string]*meanAcc)
	for i := range records {
		r := &records[i]
		if r.State == "" {
			continue
		}
		acc, ok := groups[r.State]
		if !ok {
			acc = &meanAcc{}
			groups[r.State] = acc
		}
		if d, ok := r.DeliveryTimeDays(); ok {
			acc.add(d)
		}
	}

	states := make([]string, 0, len(groups))
	for s := range groups {
		states = append(states, s)
	}
	slices.SortFunc(states, cmp.Compare[string])

	out := make([]models.GroupMean, 0, len(states))
	for _, s := range states {
		out = append(out, groups[s].row(s))
	}
	return out
}

// DeliveryByHour always returns 24 rows, one per purchase hour.
func DeliveryByHour(records []models.OrderLine) []models.GroupMean {
	var hours [24]meanAcc
	for i := range records {
		r := &records[i]
		h, ok := r.OrderHour()
		if !ok {
			continue
		}
		if d, ok := r.DeliveryTimeDays(); ok {
			hours[h].add(d)
		}
	}

	out := make([]models.GroupMean, 0, len(hours))
	for h, acc := range hours {
		out = append(out, acc.row(strconv.Itoa(h)))
	}
	return out
}

// DeliveryByMonth averages fractional delivery days per purchase month over
// the full purchase span. A month is labelled by its last day and kept when
// that day is on or after since, so a mid-month cutoff keeps its month.
func DeliveryByMonth(records []models.OrderLine, since time.Time) []models.GroupMean {
	months := make(map[int]*meanAcc)
	first, last := math.MaxInt, math.MinInt
	for i := range records {
		r := &records[i]
		if r.PurchasedAt == nil {
			continue
		}
		k := monthKey(*r.PurchasedAt)
		first = min(first, k)
		last = max(last, k)
		if d, ok := r.DeliveryTimeDays(); ok {
			acc, ok := months[k]
			if !ok {
				acc = &meanAcc{}
				months[k] = acc
			}
			acc.add(d)
		}
	}

	cutoff := monthKey(since)
	if lastDay := models.MonthOf(since).AddDate(0, 1, -1); since.After(lastDay) {
		cutoff++
	}

	out := []models.GroupMean{}
	for k := max(first, cutoff); k <= last; k++ {
		var acc meanAcc
		if m, ok := months[k]; ok {
			acc = *m
		}
		out = append(out, acc.row(monthLabel(k)))
	}
	return out
}

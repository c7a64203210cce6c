package dataset

import (
	"slices"
	"time"
)

// Facets describes the value space of the filterable columns, used to
// populate the filter sidebar.
type Facets struct {
	Categories    []string   `json:"categories"`
	States        []string   `json:"states"`
	FirstPurchase *time.Time `json:"first_purchase,omitempty"`
	LastPurchase  *time.Time `json:"last_purchase,omitempty"`
	MinPrice      *float64   `json:"min_price,omitempty"`
	MaxPrice      *float64   `json:"max_price,omitempty"`
}

func (d *Dataset) Facets() Facets {
	categories := make(map[string]struct{})
	states := make(map[string]struct{})
	var f Facets

	for i := range d.Records {
		r := &d.Records[i]
		if r.Category != "" {
			categories[r.Category] = struct{}{}
		}
		if r.State != "" {
			states[r.State] = struct{}{}
		}
		if r.Price != nil {
			p := r.Price.InexactFloat64()
			if f.MinPrice == nil || p < *f.MinPrice {
				f.MinPrice = &p
			}
			if f.MaxPrice == nil || p > *f.MaxPrice {
				f.MaxPrice = &p
			}
		}
	}

	if first, last, ok := d.PurchaseSpan(); ok {
		f.FirstPurchase, f.LastPurchase = &first, &last
	}
	f.Categories = sortedKeys(categories)
	f.States = sortedKeys(states)
	return f
}

// PurchaseSpan returns the earliest and latest purchase timestamps. ok is
// false when no record has one.
func (d *Dataset) PurchaseSpan() (first, last time.Time, ok bool) {
	for i := range d.Records {
		t := d.Records[i].PurchasedAt
		if t == nil {
			continue
		}
		if !ok || t.Before(first) {
			first = *t
		}
		if !ok || t.After(last) {
			last = *t
		}
		ok = true
	}
	return first, last, ok
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

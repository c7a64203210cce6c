package pipelines

import (
	"cmp"
	"slices"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

// TopCategories returns the n categories with the most order lines. Groups
// are formed in category-name order and then stably sorted by count, so ties
// keep name order. n <= 0 returns every category.
func TopCategories(records []models.OrderLine, n int) []models.LabelCount {
	counts := make(map[string]int)
	for i := range records {
		if c := records[i].Category; c != "" {
			counts[c]++
		}
	}

	out := make([]models.LabelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, models.LabelCount{Label: label, Count: count})
	}
	slices.SortFunc(out, func(a, b models.LabelCount) int {
		return cmp.Compare(a.Label, b.Label)
	})
	slices.SortStableFunc(out, func(a, b models.LabelCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RegionalCategories counts order lines per (state, category) for the top n
// categories, ordered by state then category.
func RegionalCategories(records []models.OrderLine, n int) []models.StateCategoryCount {
	top := make(map[string]struct{})
	for _, c := range TopCategories(records, n) {
		top[c.Label] = struct{}{}
	}

	type key struct{ state, category string }
	counts := make(map[key]int)
	for i := range records {
		r := &records[i]
		if _, ok := top[r.Category]; !ok || r.State == "" {
			continue
		}
		counts[key{r.State, r.Category}]++
	}

	out := make([]models.StateCategoryCount, 0, len(counts))
	for k, count := range counts {
		out = append(out, models.StateCategoryCount{State: k.state, Category: k.category, Count: count})
	}
	slices.SortFunc(out, func(a, b models.StateCategoryCount) int {
		if c := cmp.Compare(a.State, b.State); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

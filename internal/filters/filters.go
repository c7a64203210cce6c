package filters

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

// ReviewBucket groups review scores the way the sidebar offers them.
type ReviewBucket string

const (
	ReviewAll      ReviewBucket = "all"
	ReviewNegative ReviewBucket = "negative"
	ReviewNeutral  ReviewBucket = "neutral"
	ReviewPositive ReviewBucket = "positive"
)

var ReviewBuckets = []ReviewBucket{ReviewAll, ReviewNegative, ReviewNeutral, ReviewPositive}

func (b ReviewBucket) Label() string {
	switch b {
	case ReviewNegative:
		return "Negative (1-2)"
	case ReviewNeutral:
		return "Neutral (3)"
	case ReviewPositive:
		return "Positive (4-5)"
	default:
		return "All Scores"
	}
}

func (b ReviewBucket) Contains(score int) bool {
	switch b {
	case ReviewNegative:
		return score == 1 || score == 2
	case ReviewNeutral:
		return score == 3
	case ReviewPositive:
		return score == 4 || score == 5
	default:
		return true
	}
}

// ParseReviewBucket accepts the bucket key or its display label.
func ParseReviewBucket(s string) (ReviewBucket, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ReviewAll, nil
	}
	for _, b := range ReviewBuckets {
		if strings.EqualFold(s, string(b)) || s == b.Label() {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown review bucket %q", s)
}

// DateRange is inclusive on both ends and compares calendar dates only.
// A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	key := dateKey(t)
	if !r.Start.IsZero() && key < dateKey(r.Start) {
		return false
	}
	if !r.End.IsZero() && key > dateKey(r.End) {
		return false
	}
	return true
}

// Covers reports whether r admits every date of span. An open range covers
// anything; a bounded range only covers a known span.
func (r DateRange) Covers(span DateRange) bool {
	if r.Start.IsZero() && r.End.IsZero() {
		return true
	}
	if span.Start.IsZero() || span.End.IsZero() {
		return false
	}
	if !r.Start.IsZero() && dateKey(r.Start) > dateKey(span.Start) {
		return false
	}
	if !r.End.IsZero() && dateKey(r.End) < dateKey(span.End) {
		return false
	}
	return true
}

func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// PriceRange is inclusive; a nil bound is open.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

func (r PriceRange) Contains(p decimal.Decimal) bool {
	if r.Min != nil && p.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && p.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// Config is the set of sidebar selections. The zero value selects everything.
type Config struct {
	DateRange  *DateRange
	Categories []string
	States     []string
	PriceRange *PriceRange
	Review     ReviewBucket
}

func (c Config) IsEmpty() bool {
	return c.DateRange == nil && len(c.Categories) == 0 && len(c.States) == 0 &&
		c.PriceRange == nil && (c.Review == "" || c.Review == ReviewAll)
}

func (c Config) Validate() error {
	if r := c.DateRange; r != nil && !r.Start.IsZero() && !r.End.IsZero() && dateKey(r.Start) > dateKey(r.End) {
		return fmt.Errorf("date range start %s is after end %s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	if r := c.PriceRange; r != nil && r.Min != nil && r.Max != nil && r.Min.GreaterThan(*r.Max) {
		return fmt.Errorf("price range min %s is above max %s", r.Min, r.Max)
	}
	if _, err := ParseReviewBucket(string(c.Review)); err != nil {
		return err
	}
	return nil
}

// Predicate reports whether a record passes the active filters.
type Predicate func(*models.OrderLine) bool

// Build combines the active filters of cfg into one predicate. A filter whose
// column is absent from schema is dropped and reported as a warning. Records
// with a null value in an actively filtered column are rejected.
//
// span is the purchase span of the data being filtered. A date range that
// covers it restricts nothing and is left out, so rows without a purchase
// timestamp survive the default full-span selection.
func Build(cfg Config, schema models.Schema, span DateRange) (Predicate, []string) {
	var (
		checks   []Predicate
		warnings []string
	)

	active := func(name string, f models.Field, p Predicate) {
		if !schema.Has(f) {
			warnings = append(warnings, fmt.Sprintf("%s filter ignored: column %s not present", name, f))
			return
		}
		checks = append(checks, p)
	}

	if cfg.DateRange != nil && !cfg.DateRange.Covers(span) {
		r := *cfg.DateRange
		active("date", models.FieldPurchasedAt, func(o *models.OrderLine) bool {
			return o.PurchasedAt != nil && r.Contains(*o.PurchasedAt)
		})
	}

	if set := toSet(cfg.Categories); len(set) > 0 {
		active("category", models.FieldCategory, func(o *models.OrderLine) bool {
			_, ok := set[o.Category]
			return o.Category != "" && ok
		})
	}

	if set := toSet(cfg.States); len(set) > 0 {
		active("state", models.FieldState, func(o *models.OrderLine) bool {
			_, ok := set[o.State]
			return o.State != "" && ok
		})
	}

	if cfg.PriceRange != nil {
		r := *cfg.PriceRange
		active("price", models.FieldPrice, func(o *models.OrderLine) bool {
			return o.Price != nil && r.Contains(*o.Price)
		})
	}

	if cfg.Review != "" && cfg.Review != ReviewAll {
		bucket := cfg.Review
		active("review", models.FieldReviewScore, func(o *models.OrderLine) bool {
			return o.ReviewScore != nil && bucket.Contains(*o.ReviewScore)
		})
	}

	if len(checks) == 0 {
		return func(*models.OrderLine) bool { return true }, warnings
	}

	return func(o *models.OrderLine) bool {
		for _, check := range checks {
			if !check(o) {
				return false
			}
		}
		return true
	}, warnings
}

// Apply returns the records accepted by pred. The input is not modified.
func Apply(records []models.OrderLine, pred Predicate) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(records))
	for i := range records {
		if pred(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

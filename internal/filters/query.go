package filters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FromQuery reads a Config from URL query parameters:
//
//	start, end           YYYY-MM-DD, inclusive
//	category, state      repeatable or comma separated
//	min_price, max_price decimal
//	review               all | negative | neutral | positive
func FromQuery(q url.Values) (Config, error) {
	return raw{
		start:      q.Get("start"),
		end:        q.Get("end"),
		categories: splitValues(q["category"]),
		states:     splitValues(q["state"]),
		minPrice:   q.Get("min_price"),
		maxPrice:   q.Get("max_price"),
		review:     q.Get("review"),
	}.config()
}

// Signals is the filter state as held by the page in datastar signals.
type Signals struct {
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Categories []string `json:"categories"`
	States     []string `json:"states"`
	MinPrice   number   `json:"minPrice"`
	MaxPrice   number   `json:"maxPrice"`
	Review     string   `json:"review"`
}

func (s Signals) Config() (Config, error) {
	return raw{
		start:      s.Start,
		end:        s.End,
		categories: s.Categories,
		states:     s.States,
		minPrice:   string(s.MinPrice),
		maxPrice:   string(s.MaxPrice),
		review:     s.Review,
	}.config()
}

// number accepts either a JSON number or a JSON string; inputs bound to
// signals switch between the two depending on the widget.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = number(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = number(b)
	return nil
}

type raw struct {
	start, end         string
	categories, states []string
	minPrice, maxPrice string
	review             string
}

func (r raw) config() (Config, error) {
	var cfg Config

	start, err := parseDate(r.start)
	if err != nil {
		return Config{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseDate(r.end)
	if err != nil {
		return Config{}, fmt.Errorf("end: %w", err)
	}
	if !start.IsZero() || !end.IsZero() {
		cfg.DateRange = &DateRange{Start: start, End: end}
	}

	cfg.Categories = trimAll(r.categories)
	cfg.States = trimAll(r.states)

	minPrice, err := parsePrice(r.minPrice)
	if err != nil {
		return Config{}, fmt.Errorf("min_price: %w", err)
	}
	maxPrice, err := parsePrice(r.maxPrice)
	if err != nil {
		return Config{}, fmt.Errorf("max_price: %w", err)
	}
	if minPrice != nil || maxPrice != nil {
		cfg.PriceRange = &PriceRange{Min: minPrice, Max: maxPrice}
	}

	cfg.Review, err = ParseReviewBucket(r.review)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func parsePrice(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q", s)
	}
	return &d, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

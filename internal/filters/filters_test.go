package filters

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

func at(s string) *time.Time {
	t, _ := time.Parse(time.DateTime, s)
	return &t
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func score(n int) *int { return &n }

func date(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func sample() []models.OrderLine {
	return []models.OrderLine{
		{OrderID: "a", Category: "toys", State: "SP", Price: price("10.00"), ReviewScore: score(5), PurchasedAt: at("2017-01-01 00:00:00")},
		{OrderID: "b", Category: "toys", State: "RJ", Price: price("100.00"), ReviewScore: score(1), PurchasedAt: at("2017-01-31 23:59:59")},
		{OrderID: "c", Category: "garden", State: "SP", Price: price("55.50"), ReviewScore: score(3), PurchasedAt: at("2017-02-01 00:00:00")},
		{OrderID: "d", Price: nil, ReviewScore: nil, PurchasedAt: nil},
	}
}

func ids(records []models.OrderLine) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.OrderID)
	}
	return out
}

func run(t *testing.T, cfg Config) []string {
	t.Helper()
	pred, warnings := Build(cfg, models.FullSchema(), DateRange{})
	require.Empty(t, warnings)
	return ids(Apply(sample(), pred))
}

func TestBuild_EmptyConfigAcceptsAll(t *testing.T) {
	assert.True(t, Config{}.IsEmpty())
	assert.Equal(t, []string{"a", "b", "c", "d"}, run(t, Config{}))
	assert.Equal(t, []string{"a", "b", "c", "d"}, run(t, Config{Review: ReviewAll}))
}

func TestBuild_Filters(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "date range inclusive on both ends",
			cfg:  Config{DateRange: &DateRange{Start: date("2017-01-01"), End: date("2017-01-31")}},
			want: []string{"a", "b"},
		},
		{
			name: "open start",
			cfg:  Config{DateRange: &DateRange{End: date("2017-01-01")}},
			want: []string{"a"},
		},
		{
			name: "categories",
			cfg:  Config{Categories: []string{"garden"}},
			want: []string{"c"},
		},
		{
			name: "states",
			cfg:  Config{States: []string{"SP", "MG"}},
			want: []string{"a", "c"},
		},
		{
			name: "price inclusive",
			cfg:  Config{PriceRange: &PriceRange{Min: price("10"), Max: price("55.50")}},
			want: []string{"a", "c"},
		},
		{
			name: "negative reviews",
			cfg:  Config{Review: ReviewNegative},
			want: []string{"b"},
		},
		{
			name: "positive reviews",
			cfg:  Config{Review: ReviewPositive},
			want: []string{"a"},
		},
		{
			name: "combined",
			cfg:  Config{Categories: []string{"toys"}, States: []string{"SP"}},
			want: []string{"a"},
		},
		{
			name: "empty selection is ignored",
			cfg:  Config{Categories: []string{" "}},
			want: []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.cfg))
		})
	}
}

func TestBuild_MissingColumn(t *testing.T) {
	schema := models.NewSchema(models.FieldOrderID, models.FieldCategory)
	cfg := Config{Categories: []string{"toys"}, States: []string{"SP"}}

	pred, warnings := Build(cfg, schema, DateRange{})

	assert.Equal(t, []string{"state filter ignored: column customer_state not present"}, warnings)
	assert.Equal(t, []string{"a", "b"}, ids(Apply(sample(), pred)))
}

func TestBuild_FullSpanDateRangeKeepsUndatedRows(t *testing.T) {
	span := DateRange{Start: date("2017-01-01"), End: date("2017-02-01")}

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"empty config", Config{}, []string{"a", "b", "c", "d"}},
		{"exact span", Config{DateRange: &DateRange{Start: span.Start, End: span.End}}, []string{"a", "b", "c", "d"}},
		{"wider than span", Config{DateRange: &DateRange{Start: date("2016-01-01"), End: date("2019-01-01")}}, []string{"a", "b", "c", "d"}},
		{"open start up to span end", Config{DateRange: &DateRange{End: span.End}}, []string{"a", "b", "c", "d"}},
		{"narrower than span", Config{DateRange: &DateRange{Start: date("2017-01-02"), End: span.End}}, []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, warnings := Build(tt.cfg, models.FullSchema(), span)
			require.Empty(t, warnings)
			assert.Equal(t, tt.want, ids(Apply(sample(), pred)))
		})
	}
}

func TestDateRange_Covers(t *testing.T) {
	span := DateRange{Start: date("2017-01-01"), End: date("2017-12-31")}

	assert.True(t, DateRange{}.Covers(DateRange{}))
	assert.False(t, DateRange{Start: date("2017-01-01")}.Covers(DateRange{}), "a bounded range cannot cover an unknown span")
	assert.True(t, DateRange{Start: date("2017-01-01")}.Covers(span))
	assert.False(t, DateRange{End: date("2017-12-30")}.Covers(span))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	records := sample()
	pred, _ := Build(Config{Review: ReviewNeutral}, models.FullSchema(), DateRange{})

	out := Apply(records, pred)

	assert.Len(t, out, 1)
	assert.Len(t, records, 4)
	assert.Equal(t, "a", records[0].OrderID)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{DateRange: &DateRange{Start: date("2018-02-01"), End: date("2018-01-01")}}.Validate())
	assert.Error(t, Config{PriceRange: &PriceRange{Min: price("5"), Max: price("1")}}.Validate())
	assert.Error(t, Config{Review: "great"}.Validate())
	assert.NoError(t, Config{DateRange: &DateRange{Start: date("2018-01-01"), End: date("2018-01-01")}}.Validate())
}

func TestParseReviewBucket(t *testing.T) {
	for _, in := range []string{"positive", "Positive", "Positive (4-5)"} {
		b, err := ParseReviewBucket(in)
		require.NoError(t, err, in)
		assert.Equal(t, ReviewPositive, b)
	}

	b, err := ParseReviewBucket("")
	require.NoError(t, err)
	assert.Equal(t, ReviewAll, b)
}

func TestFromQuery(t *testing.T) {
	q := url.Values{
		"start":     {"2017-01-01"},
		"category":  {"toys,garden", "housewares"},
		"state":     {"SP"},
		"min_price": {"9.99"},
		"review":    {"neutral"},
	}

	cfg, err := FromQuery(q)
	require.NoError(t, err)

	require.NotNil(t, cfg.DateRange)
	assert.Equal(t, date("2017-01-01"), cfg.DateRange.Start)
	assert.True(t, cfg.DateRange.End.IsZero())
	assert.Equal(t, []string{"toys", "garden", "housewares"}, cfg.Categories)
	assert.Equal(t, []string{"SP"}, cfg.States)
	require.NotNil(t, cfg.PriceRange)
	assert.Equal(t, "9.99", cfg.PriceRange.Min.String())
	assert.Nil(t, cfg.PriceRange.Max)
	assert.Equal(t, ReviewNeutral, cfg.Review)

	empty, err := FromQuery(url.Values{})
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestFromQuery_Invalid(t *testing.T) {
	for _, q := range []url.Values{
		{"start": {"01/02/2017"}},
		{"max_price": {"cheap"}},
		{"review": {"5 stars"}},
		{"start": {"2018-01-02"}, "end": {"2018-01-01"}},
	} {
		_, err := FromQuery(q)
		assert.Error(t, err, q.Encode())
	}
}

func TestSignals_Config(t *testing.T) {
	body := `{"start":"2017-01-01","end":"","categories":["toys"],"states":[],"minPrice":10,"maxPrice":"","review":"all","tab":"orders"}`

	var s Signals
	require.NoError(t, json.Unmarshal([]byte(body), &s))

	cfg, err := s.Config()
	require.NoError(t, err)
	assert.Equal(t, []string{"toys"}, cfg.Categories)
	require.NotNil(t, cfg.PriceRange)
	assert.Equal(t, "10", cfg.PriceRange.Min.String())
	assert.Equal(t, ReviewAll, cfg.Review)

	var bad Signals
	assert.Error(t, json.Unmarshal([]byte(`{"minPrice":true}`), &bad))
}

package pipelines

import (
	"time"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/segments"
)

// Settings holds the tunable parameters of the pipelines.
type Settings struct {
	TopCategories      int
	RegionalCategories int
	DeliveryTrendStart time.Time
	ValueCap           float64
	ValueBins          int
}

func DefaultSettings() Settings {
	return Settings{
		TopCategories:      15,
		RegionalCategories: 5,
		DeliveryTrendStart: time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC),
		ValueCap:           1000,
		ValueBins:          50,
	}
}

// Pipeline is a named reduction of records into one summary table. Requires
// lists the columns it cannot run without; Run gets the schema so it can
// degrade for optional columns.
type Pipeline struct {
	Name     string
	Title    string
	Tab      string
	Requires []models.Field
	Run      func(records []models.OrderLine, s Settings, schema models.Schema) any
}

const (
	TabOverview   = "overview"
	TabOrders     = "orders"
	TabCustomers  = "customers"
	TabCategories = "categories"
	TabDelivery   = "delivery"
	TabReviews    = "reviews"
)

var Tabs = []string{TabOverview, TabOrders, TabCustomers, TabCategories, TabDelivery, TabReviews}

var delivered = []models.Field{models.FieldPurchasedAt, models.FieldDeliveredCustomerAt}

var registry = []Pipeline{
	{
		Name:  "overview",
		Title: "Key Metrics",
		Tab:   TabOverview,
		Run:   func(r []models.OrderLine, _ Settings, schema models.Schema) any { return Overview(r, schema) },
	},
	{
		Name:     "monthly_orders",
		Title:    "Monthly Order Trends",
		Tab:      TabOrders,
		Requires: []models.Field{models.FieldPurchasedAt},
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return MonthlyOrders(r) },
	},
	{
		Name:     "weekday_orders",
		Title:    "Order Distribution by Day of Week",
		Tab:      TabOrders,
		Requires: []models.Field{models.FieldPurchasedAt},
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return WeekdayOrders(r) },
	},
	{
		Name:     "quarterly_orders",
		Title:    "Quarterly Order Distribution",
		Tab:      TabOrders,
		Requires: []models.Field{models.FieldPurchasedAt},
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return QuarterlyOrders(r) },
	},
	{
		Name:     "monthly_orders_by_year",
		Title:    "Monthly Orders: Year-over-Year Comparison",
		Tab:      TabOrders,
		Requires: []models.Field{models.FieldPurchasedAt},
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return MonthlyOrdersByYear(r) },
	},
	{
		Name:     "order_values",
		Title:    "Distribution of Order Values",
		Tab:      TabOrders,
		Requires: []models.Field{models.FieldPrice, models.FieldFreight},
		Run:      func(r []models.OrderLine, s Settings, _ models.Schema) any { return OrderValues(r, s.ValueCap, s.ValueBins) },
	},
	{
		Name:     "payment_types",
		Title:    "Distribution of Payment Methods",
		Tab:      TabOrders,
		Requires: []models.Field{models.FieldPaymentType},
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return PaymentTypes(r) },
	},
	{
		Name:     "customer_segments",
		Title:    "Customer Segments Based on Behavior",
		Tab:      TabCustomers,
		Requires: []models.Field{models.FieldCustomerID, models.FieldPurchasedAt, models.FieldPrice, models.FieldFreight},
		Run: func(r []models.OrderLine, _ Settings, _ models.Schema) any {
			return segments.Counts(segments.ComputeMetrics(r))
		},
	},
	{
		Name:     "segment_stats",
		Title:    "Key Metrics by Customer Segment",
		Tab:      TabCustomers,
		Requires: []models.Field{models.FieldCustomerID, models.FieldPurchasedAt, models.FieldPrice, models.FieldFreight},
		Run: func(r []models.OrderLine, _ Settings, _ models.Schema) any {
			return segments.Stats(segments.ComputeMetrics(r))
		},
	},
	{
		Name:     "top_categories",
		Title:    "Top Product Categories",
		Tab:      TabCategories,
		Requires: []models.Field{models.FieldCategory},
		Run:      func(r []models.OrderLine, s Settings, _ models.Schema) any { return TopCategories(r, s.TopCategories) },
	},
	{
		Name:     "regional_categories",
		Title:    "Regional Distribution of Top Categories",
		Tab:      TabCategories,
		Requires: []models.Field{models.FieldCategory, models.FieldState},
		Run:      func(r []models.OrderLine, s Settings, _ models.Schema) any { return RegionalCategories(r, s.RegionalCategories) },
	},
	{
		Name:     "delivery_by_state",
		Title:    "Average Delivery Time by State (Days)",
		Tab:      TabDelivery,
		Requires: append([]models.Field{models.FieldState}, delivered...),
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return DeliveryByState(r) },
	},
	{
		Name:     "delivery_by_month",
		Title:    "Average Delivery Time Trends (Days)",
		Tab:      TabDelivery,
		Requires: delivered,
		Run:      func(r []models.OrderLine, s Settings, _ models.Schema) any { return DeliveryByMonth(r, s.DeliveryTrendStart) },
	},
	{
		Name:     "delivery_by_hour",
		Title:    "Average Delivery Time by Order Hour",
		Tab:      TabDelivery,
		Requires: delivered,
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return DeliveryByHour(r) },
	},
	{
		Name:     "review_scores",
		Title:    "Distribution of Review Scores",
		Tab:      TabReviews,
		Requires: []models.Field{models.FieldReviewScore},
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return ReviewScores(r) },
	},
	{
		Name:     "delivery_by_review_score",
		Title:    "Average Delivery Time by Review Score",
		Tab:      TabReviews,
		Requires: append([]models.Field{models.FieldReviewScore}, delivered...),
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return DeliveryByReviewScore(r) },
	},
	{
		Name:     "delivery_review_scatter",
		Title:    "Relationship Between Delivery Time and Review Score",
		Tab:      TabReviews,
		Requires: append([]models.Field{models.FieldReviewScore}, delivered...),
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return DeliveryReviewScatter(r) },
	},
	{
		Name:     "on_time_reviews",
		Title:    "Review Score Distribution: On-Time vs Late Deliveries",
		Tab:      TabReviews,
		Requires: []models.Field{models.FieldReviewScore, models.FieldDeliveredCustomerAt, models.FieldEstimatedDeliveryAt},
		Run:      func(r []models.OrderLine, _ Settings, _ models.Schema) any { return OnTimeReviews(r) },
	},
}

// Registry returns every pipeline in presentation order.
func Registry() []Pipeline {
	out := make([]Pipeline, len(registry))
	copy(out, registry)
	return out
}

func Lookup(name string) (Pipeline, bool) {
	for _, p := range registry {
		if p.Name == name {
			return p, true
		}
	}
	return Pipeline{}, false
}

// ForTab returns the pipelines shown on one tab.
func ForTab(tab string) []Pipeline {
	var out []Pipeline
	for _, p := range registry {
		if p.Tab == tab {
			out = append(out, p)
		}
	}
	return out
}

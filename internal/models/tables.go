package models

// Overview holds the key distinct counts. A nil count means its id column is
// not in the source.
type Overview struct {
	Orders     *int `json:"orders"`
	Products   *int `json:"products"`
	Customers  *int `json:"customers"`
	Sellers    *int `json:"sellers"`
	OrderLines int  `json:"order_lines"`
}

type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"order_count"`
}

type YearMonthCount struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Count     int    `json:"order_count"`
}

type WeekdayCount struct {
	Day   string `json:"day"`
	Count int    `json:"order_count"`
}

type QuarterCount struct {
	Label   string `json:"quarter_label"`
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
	Count   int    `json:"order_count"`
}

type ValueBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type StateCategoryCount struct {
	State    string `json:"customer_state"`
	Category string `json:"product_category_name_english"`
	Count    int    `json:"order_count"`
}

// GroupMean is a mean over a group; Mean is nil when the group has no
// defined values.
type GroupMean struct {
	Group string   `json:"group"`
	Mean  *float64 `json:"mean_delivery_days"`
	Count int      `json:"count"`
}

type ScoreCount struct {
	Score int `json:"review_score"`
	Count int `json:"count"`
}

type ScatterPoint struct {
	DeliveryDays int `json:"delivery_days"`
	ReviewScore  int `json:"review_score"`
	Count        int `json:"count"`
}

// OnTimeReviewRow is one delivery-status row; Scores[i] counts score i+1.
type OnTimeReviewRow struct {
	Status string `json:"status"`
	Scores [5]int `json:"scores"`
}

type SegmentCount struct {
	Segment string `json:"segment"`
	Count   int    `json:"count"`
}

type SegmentStats struct {
	Segment          string   `json:"segment"`
	Customers        int      `json:"customer_count"`
	AvgDaysSinceLast *float64 `json:"avg_days_since_last_purchase"`
	AvgPurchases     float64  `json:"avg_number_of_purchases"`
	AvgTotalSpending float64  `json:"avg_total_spending"`
}

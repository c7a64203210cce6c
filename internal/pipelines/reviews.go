package pipelines

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

const (
	StatusLate   = "Late Delivery"
	StatusOnTime = "On Time Delivery"
)

// score returns the review score when it is in 1..5.
func score(r *models.OrderLine) (int, bool) {
	if r.ReviewScore == nil || *r.ReviewScore < 1 || *r.ReviewScore > 5 {
		return 0, false
	}
	return *r.ReviewScore, true
}

// ReviewScores counts reviews for each score 1 through 5.
func ReviewScores(records []models.OrderLine) []models.ScoreCount {
	var counts [5]int
	for i := range records {
		if s, ok := score(&records[i]); ok {
			counts[s-1]++
		}
	}

	out := make([]models.ScoreCount, 0, len(counts))
	for i, n := range counts {
		out = append(out, models.ScoreCount{Score: i + 1, Count: n})
	}
	return out
}

// DeliveryByReviewScore averages fractional delivery days per review score.
func DeliveryByReviewScore(records []models.OrderLine) []models.GroupMean {
	var scores [5]meanAcc
	for i := range records {
		r := &records[i]
		s, ok := score(r)
		if !ok {
			continue
		}
		if d, ok := r.DeliveryTimeDays(); ok {
			scores[s-1].add(d)
		}
	}

	out := make([]models.GroupMean, 0, len(scores))
	for i, acc := range scores {
		out = append(out, acc.row(strconv.Itoa(i+1)))
	}
	return out
}

// DeliveryReviewScatter collapses the (whole delivery days, score) point
// cloud into distinct points with multiplicities.
func DeliveryReviewScatter(records []models.OrderLine) []models.ScatterPoint {
	type point struct{ days, score int }
	counts := make(map[point]int)
	for i := range records {
		r := &records[i]
		s, ok := score(r)
		if !ok {
			continue
		}
		if d, ok := r.DeliveryDays(); ok {
			counts[point{d, s}]++
		}
	}

	out := make([]models.ScatterPoint, 0, len(counts))
	for p, n := range counts {
		out = append(out, models.ScatterPoint{DeliveryDays: p.days, ReviewScore: p.score, Count: n})
	}
	slices.SortFunc(out, func(a, b models.ScatterPoint) int {
		if c := cmp.Compare(a.DeliveryDays, b.DeliveryDays); c != 0 {
			return c
		}
		return cmp.Compare(a.ReviewScore, b.ReviewScore)
	})
	return out
}

// OnTimeReviews cross-tabulates delivery punctuality against review score.
// Both rows are always present; records with an undefined on-time flag or
// no score are left out.
func OnTimeReviews(records []models.OrderLine) []models.OnTimeReviewRow {
	late := models.OnTimeReviewRow{Status: StatusLate}
	onTime := models.OnTimeReviewRow{Status: StatusOnTime}
	for i := range records {
		r := &records[i]
		s, ok := score(r)
		if !ok {
			continue
		}
		punctual, defined := r.IsOnTime()
		if !defined {
			continue
		}
		if punctual {
			onTime.Scores[s-1]++
		} else {
			late.Scores[s-1]++
		}
	}
	return []models.OnTimeReviewRow{late, onTime}
}

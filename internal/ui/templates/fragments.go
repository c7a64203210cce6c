package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

// Notices renders the #notices fragment.
func Notices(notices []Notice) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) (err error) {
		if _, err = io.WriteString(w, `<div id="notices">`); err != nil {
			return err
		}
		for _, n := range notices {
			class := "notice"
			if n.Fatal {
				class = "notice fatal"
			}
			if _, err = io.WriteString(w, `<div class="`+class+`">`+templ.EscapeString(n.Message)+`</div>`); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}

func count(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

// OverviewMetrics renders the #overview-metrics fragment.
func OverviewMetrics(o models.Overview) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) (err error) {
		if _, err = io.WriteString(w, `<div id="overview-metrics" class="metrics">`); err != nil {
			return err
		}
		metrics := []struct {
			label string
			value *int
		}{
			{"Total Orders", o.Orders},
			{"Total Products", o.Products},
			{"Total Customers", o.Customers},
			{"Total Sellers", o.Sellers},
		}
		for _, m := range metrics {
			if _, err = io.WriteString(w, `<div class="metric"><h4>`+templ.EscapeString(m.label)+`</h4><strong>`+count(m.value)+`</strong></div>`); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}

// SegmentStats renders the #segment-stats fragment.
func SegmentStats(stats []models.SegmentStats) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) (err error) {
		if _, err = io.WriteString(w, `<div id="segment-stats"><table><thead><tr><th>Segment</th><th>Customers</th><th>Avg days since last purchase</th><th>Avg purchases</th><th>Avg total spending</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, s := range stats {
			days := "-"
			if s.AvgDaysSinceLast != nil {
				days = fmt.Sprintf("%.1f", *s.AvgDaysSinceLast)
			}
			row := `<tr><td>` + templ.EscapeString(s.Segment) + `</td>` +
				`<td>` + strconv.Itoa(s.Customers) + `</td>` +
				`<td>` + days + `</td>` +
				`<td>` + fmt.Sprintf("%.2f", s.AvgPurchases) + `</td>` +
				`<td>` + fmt.Sprintf("%.2f", s.AvgTotalSpending) + `</td></tr>`
			if _, err = io.WriteString(w, row); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</tbody></table></div>`)
		return err
	})
}

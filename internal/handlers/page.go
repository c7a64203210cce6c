package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/filters"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/observability"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/pipelines"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/services"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	pageTitle     = "E-Commerce Public Dataset Dashboard"
)

var tabLabels = map[string]string{
	pipelines.TabOverview:   "Overview",
	pipelines.TabOrders:     "Orders",
	pipelines.TabCustomers:  "Customers",
	pipelines.TabCategories: "Categories",
	pipelines.TabDelivery:   "Delivery",
	pipelines.TabReviews:    "Reviews",
}

type PageHandler struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewPageHandler(analytics *services.Analytics, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		analytics: analytics,
		logger:    logger,
	}
}

func buildPage(analytics *services.Analytics) templates.Page {
	page := templates.Page{Title: pageTitle}

	for _, id := range pipelines.Tabs {
		tab := templates.Tab{ID: id, Label: tabLabels[id]}
		for _, p := range pipelines.ForTab(id) {
			tab.Panels = append(tab.Panels, templates.Panel{Name: p.Name, Title: p.Title})
		}
		page.Tabs = append(page.Tabs, tab)
	}

	for _, b := range filters.ReviewBuckets {
		page.ReviewOptions = append(page.ReviewOptions, templates.Option{Value: string(b), Label: b.Label()})
	}

	facets, err := analytics.Facets()
	if err != nil {
		page.Notices = append(page.Notices, templates.Notice{Message: "Dataset not loaded", Fatal: true})
		return page
	}
	page.Facets = facets
	for _, w := range analytics.Warnings() {
		page.Notices = append(page.Notices, templates.Notice{Message: w})
	}
	return page
}

func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard(buildPage(h.analytics)).Render(ctx, w); err != nil {
		observability.LoggerFrom(ctx, h.logger).Error("render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/errors"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/filters"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/observability"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/pipelines"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/services"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// readFilters decodes the sidebar state sent by datastar with the request.
func readFilters(r *http.Request) (filters.Config, error) {
	var signals filters.Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return filters.Config{}, fmt.Errorf("read signals: %w", err)
	}
	return signals.Config()
}

// noticeFor turns a request failure into a message safe to show on the page.
func noticeFor(err error) templates.Notice {
	var appErr *errors.AppError
	if stderrors.As(toAppError(err), &appErr) && appErr.Code != errors.CodeInternal {
		msg := appErr.Message
		if appErr.Details != "" {
			msg += ": " + appErr.Details
		}
		return templates.Notice{Message: msg, Fatal: true}
	}
	return templates.Notice{Message: "An unexpected error occurred", Fatal: true}
}

func notices(d *services.Dashboard) []templates.Notice {
	out := make([]templates.Notice, 0, len(d.Warnings)+len(d.Issues))
	for _, w := range d.Warnings {
		out = append(out, templates.Notice{Message: w})
	}
	for _, issue := range d.Issues {
		out = append(out, templates.Notice{Message: issue.Message(), Fatal: issue.Fatal})
	}
	return out
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		observability.LoggerFrom(ctx, h.logger).Error("render fragment", "error", err)
		return
	}
	if err := sse.PatchElements(buf.String()); err != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("patch elements", "error", err)
	}
}

// stream runs the dashboard query and pushes its tables as signals and the
// server-rendered fragments as element patches.
func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, run func(context.Context, filters.Config) (*services.Dashboard, error)) {
	ctx := r.Context()
	logger := observability.LoggerFrom(ctx, h.logger)

	cfg, cfgErr := readFilters(r)
	sse := datastar.NewSSE(w, r)

	if cfgErr != nil {
		logger.Warn("invalid filter signals", "error", cfgErr)
		h.patch(ctx, sse, templates.Notices([]templates.Notice{{Message: "Invalid filter: " + cfgErr.Error(), Fatal: true}}))
		return
	}

	d, err := run(ctx, cfg)
	if err != nil {
		logger.Warn("dashboard query failed", "error", err)
		h.patch(ctx, sse, templates.Notices([]templates.Notice{noticeFor(err)}))
		return
	}

	h.patch(ctx, sse, templates.Notices(notices(d)))

	if overview, ok := d.Tables["overview"].(models.Overview); ok {
		h.patch(ctx, sse, templates.OverviewMetrics(overview))
	}
	if stats, ok := d.Tables["segment_stats"].([]models.SegmentStats); ok {
		h.patch(ctx, sse, templates.SegmentStats(stats))
	}

	signals, err := json.Marshal(map[string]any{
		"tables":       d.Tables,
		"records":      d.Records,
		"totalRecords": d.TotalRecords,
	})
	if err != nil {
		logger.Error("marshal dashboard signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		logger.Warn("patch signals", "error", err)
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.analytics.Dashboard)
}

func (h *SSEHandlers) HandleTab(w http.ResponseWriter, r *http.Request) {
	tab := r.PathValue("tab")
	if len(pipelines.ForTab(tab)) == 0 {
		ctx := r.Context()
		errors.WriteError(ctx, w, h.logger, errors.NotFound(fmt.Sprintf("unknown tab %q", tab)), observability.GetRequestID(ctx))
		return
	}

	h.stream(w, r, func(ctx context.Context, cfg filters.Config) (*services.Dashboard, error) {
		return h.analytics.Tab(ctx, tab, cfg)
	})
}

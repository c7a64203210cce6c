package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/errors"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/filters"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/observability"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/segments"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/services"
)

const (
	defaultPageSize = 100
	maxPageSize     = 10000
	cacheMaxAge     = "public, max-age=300"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// toAppError maps service errors onto the API error codes.
func toAppError(err error) error {
	switch {
	case stderrors.Is(err, services.ErrNoData):
		return errors.ServiceUnavailable("Dataset not loaded")
	case stderrors.Is(err, services.ErrInvalidFilter):
		return errors.ValidationWrap(err, "Invalid filter")
	case stderrors.Is(err, services.ErrUnknownPipeline):
		return errors.NotFound(err.Error())
	case stderrors.Is(err, services.ErrMissingColumns):
		return errors.MissingInput(err, "Required input missing")
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.ServiceUnavailable("Request cancelled")
	default:
		return err
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	errors.WriteError(ctx, w, h.logger, toAppError(err), observability.GetRequestID(ctx))
}

func queryFilters(q url.Values) (filters.Config, error) {
	cfg, err := filters.FromQuery(q)
	if err != nil {
		return filters.Config{}, errors.ValidationWrap(err, "Invalid filter")
	}
	return cfg, nil
}

func pageSize(q url.Values) (int, error) {
	raw := q.Get("limit")
	if raw == "" {
		return defaultPageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxPageSize {
		return 0, errors.Validation(fmt.Sprintf("limit must be an integer between 1 and %d", maxPageSize))
	}
	return n, nil
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	cfg, err := queryFilters(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dashboard, err := h.analytics.Dashboard(r.Context(), cfg)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	warnings := append([]string{}, dashboard.Warnings...)
	for _, issue := range dashboard.Issues {
		warnings = append(warnings, issue.Message())
	}

	w.Header().Set("Cache-Control", cacheMaxAge)
	errors.WriteSuccessWithWarnings(w, dashboard, warnings)
}

func (h *APIHandlers) HandleFacets(w http.ResponseWriter, r *http.Request) {
	facets, err := h.analytics.Facets()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheMaxAge)
	errors.WriteSuccessWithWarnings(w, facets, h.analytics.Warnings())
}

func (h *APIHandlers) HandlePipelines(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.analytics.Catalog()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, catalog)
}

func (h *APIHandlers) HandlePipeline(w http.ResponseWriter, r *http.Request) {
	cfg, err := queryFilters(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, warnings, err := h.analytics.Run(r.Context(), r.PathValue("name"), cfg)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheMaxAge)
	errors.WriteSuccessWithWarnings(w, data, warnings)
}

func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg, err := queryFilters(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := pageSize(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var segment segments.Segment
	if raw := q.Get("segment"); raw != "" {
		s, ok := segments.Parse(raw)
		if !ok {
			h.fail(w, r, errors.Validation(fmt.Sprintf("unknown segment %q", raw)))
			return
		}
		segment = s
	}

	page, err := h.analytics.Customers(r.Context(), cfg, segment, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithWarnings(w, page, page.Warnings)
}

func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg, err := queryFilters(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := pageSize(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.analytics.DerivedRecords(r.Context(), cfg, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithWarnings(w, page, page.Warnings)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]any{
		"status":      "healthy",
		"data_loaded": h.analytics.Loaded(),
		"timestamp":   time.Now().Format(time.RFC3339),
		"version":     "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

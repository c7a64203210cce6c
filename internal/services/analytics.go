package services

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/dataset"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/filters"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/observability"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/pipelines"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/segments"
	"golang.org/x/sync/errgroup"
)

const cacheVersion = "v1"

var (
	ErrNoData          = errors.New("no data loaded")
	ErrUnknownPipeline = errors.New("unknown pipeline")
	ErrMissingColumns  = errors.New("required columns missing")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// Issue reports a pipeline that could not run on the loaded schema. Fatal
// issues are those caused by a missing purchase timestamp column.
type Issue struct {
	Pipeline string         `json:"pipeline"`
	Title    string         `json:"title"`
	Missing  []models.Field `json:"missing"`
	Fatal    bool           `json:"fatal"`
}

func (i Issue) Message() string {
	cols := make([]string, len(i.Missing))
	for n, f := range i.Missing {
		cols[n] = string(f)
	}
	return fmt.Sprintf("%s unavailable: missing %s", i.Title, strings.Join(cols, ", "))
}

// Dashboard is the result of running a set of pipelines over one filtered
// view of the dataset.
type Dashboard struct {
	Tables       map[string]any `json:"tables"`
	Issues       []Issue        `json:"issues"`
	Warnings     []string       `json:"warnings"`
	Records      int            `json:"records"`
	TotalRecords int            `json:"total_records"`
}

type CustomerPage struct {
	Segment   string             `json:"segment,omitempty"`
	Total     int                `json:"total"`
	Customers []segments.Metrics `json:"customers"`
	Warnings  []string           `json:"warnings"`
}

type RecordPage struct {
	Total    int                    `json:"total"`
	Records  []models.DerivedFields `json:"records"`
	Warnings []string               `json:"warnings"`
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

// WithCacheDir sets where parsed datasets are cached. An empty dir disables
// the cache.
func WithCacheDir(dir string) Option {
	return func(a *Analytics) { a.cacheDir = dir }
}

func WithWorkers(n int) Option {
	return func(a *Analytics) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithSettings(s pipelines.Settings) Option {
	return func(a *Analytics) { a.settings = s }
}

type Analytics struct {
	mu       sync.RWMutex
	data     *dataset.Dataset
	span     filters.DateRange
	csvPath  string
	cacheDir string
	workers  int
	settings pipelines.Settings
	logger   *slog.Logger
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		workers:  4,
		settings: pipelines.DefaultSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetData replaces the loaded dataset.
func (a *Analytics) SetData(ds *dataset.Dataset) {
	var span filters.DateRange
	if first, last, ok := ds.PurchaseSpan(); ok {
		span = filters.DateRange{Start: first, End: last}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = ds
	a.span = span
}

// SetRecords installs in-memory records with the given schema.
func (a *Analytics) SetRecords(records []models.OrderLine, schema models.Schema) {
	a.SetData(&dataset.Dataset{
		Source:   "memory",
		Records:  records,
		Schema:   schema,
		LoadedAt: time.Now(),
	})
}

func (a *Analytics) snapshot() (*dataset.Dataset, error) {
	ds, _, err := a.snapshotSpan()
	return ds, err
}

// snapshotSpan returns the dataset together with its purchase span.
func (a *Analytics) snapshotSpan() (*dataset.Dataset, filters.DateRange, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.data == nil {
		return nil, filters.DateRange{}, ErrNoData
	}
	return a.data, a.span, nil
}

func (a *Analytics) Loaded() bool {
	_, err := a.snapshot()
	return err == nil
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	a.csvPath = filename

	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	if cached, err := a.loadFromCache(filename); err == nil && fileInfo.ModTime().Before(cached.LoadedAt) {
		a.SetData(cached)
		a.logger.Info("loaded from cache", "records", len(cached.Records))
		return nil
	}

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", filename)

	ds, err := dataset.Load(ctx, filename, a.logger)
	if err != nil {
		return fmt.Errorf("process csv: %w", err)
	}
	a.SetData(ds)

	if err := a.saveToCache(filename, ds); err != nil {
		a.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	count := len(ds.Records)
	a.logger.Info("csv processing complete",
		"records", count,
		"warnings", len(ds.Warnings),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))

	return nil
}

// view filters the dataset once for a request.
func (a *Analytics) view(ctx context.Context, cfg filters.Config) (*dataset.Dataset, []models.OrderLine, []string, error) {
	ds, span, err := a.snapshotSpan()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	_, sp := observability.StartSpan(ctx, "filter")
	defer sp.Finish()

	pred, warnings := filters.Build(cfg, ds.Schema, span)
	records := ds.Records
	if !cfg.IsEmpty() {
		records = filters.Apply(ds.Records, pred)
	}
	sp.SetTag("records", fmt.Sprint(len(records)))
	return ds, records, warnings, nil
}

func issueFor(p pipelines.Pipeline, schema models.Schema) (Issue, bool) {
	missing := schema.Missing(p.Requires...)
	if len(missing) == 0 {
		return Issue{}, false
	}
	return Issue{
		Pipeline: p.Name,
		Title:    p.Title,
		Missing:  missing,
		Fatal:    slices.Contains(missing, models.RequiredField),
	}, true
}

// Dashboard runs every registered pipeline over the filtered records.
func (a *Analytics) Dashboard(ctx context.Context, cfg filters.Config) (*Dashboard, error) {
	return a.run(ctx, cfg, pipelines.Registry())
}

// Tab runs the pipelines of one dashboard tab.
func (a *Analytics) Tab(ctx context.Context, tab string, cfg filters.Config) (*Dashboard, error) {
	ps := pipelines.ForTab(tab)
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: tab %q", ErrUnknownPipeline, tab)
	}
	return a.run(ctx, cfg, ps)
}

func (a *Analytics) run(ctx context.Context, cfg filters.Config, ps []pipelines.Pipeline) (*Dashboard, error) {
	ds, records, warnings, err := a.view(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out := &Dashboard{
		Tables:       make(map[string]any, len(ps)),
		Issues:       []Issue{},
		Warnings:     append([]string{}, warnings...),
		Records:      len(records),
		TotalRecords: len(ds.Records),
	}

	runnable := make([]pipelines.Pipeline, 0, len(ps))
	for _, p := range ps {
		if issue, ok := issueFor(p, ds.Schema); ok {
			out.Issues = append(out.Issues, issue)
			a.logger.Warn("pipeline skipped", "pipeline", p.Name, "missing", issue.Missing, "fatal", issue.Fatal)
			continue
		}
		runnable = append(runnable, p)
	}

	results := make([]any, len(runnable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, p := range runnable {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.runPipeline(gctx, p, records, ds.Schema)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, p := range runnable {
		out.Tables[p.Name] = results[i]
	}
	return out, nil
}

func (a *Analytics) runPipeline(ctx context.Context, p pipelines.Pipeline, records []models.OrderLine, schema models.Schema) any {
	_, span := observability.StartSpan(ctx, "pipeline."+p.Name)
	span.SetTag("records", fmt.Sprint(len(records)))
	result := p.Run(records, a.settings, schema)
	span.Finish()
	span.Log(ctx, observability.LoggerFrom(ctx, a.logger))
	return result
}

// Run executes a single pipeline by name.
func (a *Analytics) Run(ctx context.Context, name string, cfg filters.Config) (any, []string, error) {
	p, ok := pipelines.Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}

	ds, records, warnings, err := a.view(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if issue, ok := issueFor(p, ds.Schema); ok {
		return nil, warnings, fmt.Errorf("%w: %s", ErrMissingColumns, issue.Message())
	}
	return a.runPipeline(ctx, p, records, ds.Schema), warnings, nil
}

// Customers returns per-customer metrics for the filtered records, optionally
// restricted to one segment. limit <= 0 returns every customer.
func (a *Analytics) Customers(ctx context.Context, cfg filters.Config, segment segments.Segment, limit int) (*CustomerPage, error) {
	ds, records, warnings, err := a.view(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if p, ok := pipelines.Lookup("customer_segments"); ok {
		if issue, ok := issueFor(p, ds.Schema); ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, issue.Message())
		}
	}

	metrics := segments.Filter(segments.ComputeMetrics(records), segment)
	page := &CustomerPage{
		Segment:   string(segment),
		Total:     len(metrics),
		Customers: metrics,
		Warnings:  append([]string{}, warnings...),
	}
	if limit > 0 && len(page.Customers) > limit {
		page.Customers = page.Customers[:limit]
	}
	if page.Customers == nil {
		page.Customers = []segments.Metrics{}
	}
	return page, nil
}

// DerivedRecords returns the derived fields of the filtered records in
// source order. limit <= 0 returns every record.
func (a *Analytics) DerivedRecords(ctx context.Context, cfg filters.Config, limit int) (*RecordPage, error) {
	_, records, warnings, err := a.view(ctx, cfg)
	if err != nil {
		return nil, err
	}

	n := len(records)
	if limit > 0 {
		n = min(n, limit)
	}
	page := &RecordPage{
		Total:    len(records),
		Records:  make([]models.DerivedFields, n),
		Warnings: append([]string{}, warnings...),
	}
	for i := range n {
		page.Records[i] = records[i].Derived()
	}
	return page, nil
}

// PipelineStatus describes a registered pipeline and whether the loaded
// schema can feed it.
type PipelineStatus struct {
	Name      string         `json:"name"`
	Title     string         `json:"title"`
	Tab       string         `json:"tab"`
	Requires  []models.Field `json:"requires"`
	Available bool           `json:"available"`
	Missing   []models.Field `json:"missing,omitempty"`
}

func (a *Analytics) Catalog() ([]PipelineStatus, error) {
	ds, err := a.snapshot()
	if err != nil {
		return nil, err
	}

	registry := pipelines.Registry()
	out := make([]PipelineStatus, 0, len(registry))
	for _, p := range registry {
		missing := ds.Schema.Missing(p.Requires...)
		out = append(out, PipelineStatus{
			Name:      p.Name,
			Title:     p.Title,
			Tab:       p.Tab,
			Requires:  p.Requires,
			Available: len(missing) == 0,
			Missing:   missing,
		})
	}
	return out, nil
}

func (a *Analytics) Facets() (dataset.Facets, error) {
	ds, err := a.snapshot()
	if err != nil {
		return dataset.Facets{}, err
	}
	return ds.Facets(), nil
}

// Warnings returns the diagnostics collected while loading.
func (a *Analytics) Warnings() []string {
	ds, err := a.snapshot()
	if err != nil {
		return nil
	}
	return ds.Warnings
}

// Cache management
func (a *Analytics) getCacheFilename(csvPath string) string {
	name := strings.ReplaceAll(filepath.Clean(csvPath), string(filepath.Separator), "_")
	return filepath.Join(a.cacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (a *Analytics) saveToCache(csvPath string, ds *dataset.Dataset) error {
	if a.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.cacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(a.getCacheFilename(csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(ds)
}

func (a *Analytics) loadFromCache(csvPath string) (*dataset.Dataset, error) {
	if a.cacheDir == "" {
		return nil, os.ErrNotExist
	}
	file, err := os.Open(a.getCacheFilename(csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ds dataset.Dataset
	if err := gob.NewDecoder(file).Decode(&ds); err != nil {
		return nil, err
	}
	if ds.Schema.Present == nil {
		ds.Schema = models.NewSchema()
	}
	return &ds, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	ds, err := a.snapshot()
	if err != nil {
		return map[string]any{"loaded": false}
	}

	columns := make([]string, 0, len(ds.Schema.Present))
	for _, f := range ds.Schema.Columns() {
		columns = append(columns, string(f))
	}
	return map[string]any{
		"loaded":         true,
		"source":         ds.Source,
		"record_count":   len(ds.Records),
		"last_processed": ds.LoadedAt,
		"columns":        columns,
		"warnings":       len(ds.Warnings),
		"pipelines":      len(pipelines.Registry()),
	}
}

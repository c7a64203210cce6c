package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

var ErrEmptyFile = errors.New("empty file")

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"NaN":  true,
	"NaT":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// Dataset is the immutable in-memory record collection loaded from one source.
type Dataset struct {
	Source   string
	Records  []models.OrderLine
	Schema   models.Schema
	Warnings []string
	LoadedAt time.Time
}

// Load reads the CSV at path. A missing file is an error; missing columns and
// unparseable values are reported as warnings.
func Load(ctx context.Context, path string, logger *slog.Logger) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	ds, err := Parse(ctx, file, logger)
	if err != nil {
		return nil, err
	}
	ds.Source = path
	return ds, nil
}

type columnIndex map[models.Field]int

func (c columnIndex) value(row []string, f models.Field) (string, bool) {
	i, ok := c[f]
	if !ok || i >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[i])
	if nullTokens[v] {
		return "", false
	}
	return v, true
}

// Parse reads header-driven CSV from r. Column order does not matter and
// unknown columns are ignored. Output order matches input order.
func Parse(ctx context.Context, r io.Reader, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(columnIndex)
	known := make(map[models.Field]bool, len(models.AllFields))
	for _, f := range models.AllFields {
		known[f] = true
	}
	for i, h := range header {
		f := models.Field(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[f]; known[f] && !dup {
			cols[f] = i
		}
	}

	present := make([]models.Field, 0, len(cols))
	for f := range cols {
		present = append(present, f)
	}
	ds := &Dataset{Schema: models.NewSchema(present...)}

	for _, f := range ds.Schema.Missing(models.AllFields...) {
		msg := fmt.Sprintf("column %s not present; views that need it are disabled", f)
		ds.Warnings = append(ds.Warnings, msg)
		logger.Warn("missing column", "column", f)
	}

	var rows [][]string
	malformed := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				malformed++
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}

	if malformed > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("%d malformed rows skipped", malformed))
		logger.Warn("malformed rows skipped", "count", malformed)
	}

	records, failures, err := parseRows(ctx, rows, cols)
	if err != nil {
		return nil, err
	}
	ds.Records = records

	for _, f := range models.AllFields {
		if n := failures[f]; n > 0 {
			ds.Warnings = append(ds.Warnings, fmt.Sprintf("%d unparseable values in column %s set to null", n, f))
			logger.Warn("unparseable values", "column", f, "count", n)
		}
	}

	ds.LoadedAt = time.Now()
	return ds, nil
}

// parseRows converts rows in batches on a bounded worker group. Each batch
// writes only its own slice window, so ordering is preserved without locking.
func parseRows(ctx context.Context, rows [][]string, cols columnIndex) ([]models.OrderLine, map[models.Field]int, error) {
	records := make([]models.OrderLine, len(rows))
	failures := make(map[models.Field]int)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		g.Go(func() error {
			local := make(map[models.Field]int)
			for i := start; i < end; i++ {
				if i%1000 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				records[i] = parseRow(rows[i], cols, local)
			}

			mu.Lock()
			for f, n := range local {
				failures[f] += n
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, failures, nil
}

func parseRow(row []string, cols columnIndex, failures map[models.Field]int) models.OrderLine {
	var o models.OrderLine

	o.OrderID, _ = cols.value(row, models.FieldOrderID)
	o.ProductID, _ = cols.value(row, models.FieldProductID)
	o.CustomerID, _ = cols.value(row, models.FieldCustomerID)
	o.SellerID, _ = cols.value(row, models.FieldSellerID)
	o.Category, _ = cols.value(row, models.FieldCategory)
	o.State, _ = cols.value(row, models.FieldState)
	o.PaymentType, _ = cols.value(row, models.FieldPaymentType)

	if v, ok := cols.value(row, models.FieldPrice); ok {
		o.Price = parseDecimal(v, models.FieldPrice, failures)
	}
	if v, ok := cols.value(row, models.FieldFreight); ok {
		o.FreightValue = parseDecimal(v, models.FieldFreight, failures)
	}
	if v, ok := cols.value(row, models.FieldReviewScore); ok {
		o.ReviewScore = parseScore(v, failures)
	}

	for _, f := range models.TimestampFields {
		v, ok := cols.value(row, f)
		if !ok {
			continue
		}
		t, err := parseTimestamp(v)
		if err != nil {
			failures[f]++
			continue
		}
		o.SetTimestamp(f, &t)
	}

	return o
}

func parseDecimal(v string, f models.Field, failures map[models.Field]int) *decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		failures[f]++
		return nil
	}
	return &d
}

// parseScore accepts integral values in 1..5, including float spellings
// such as "4.0".
func parseScore(v string, failures map[models.Field]int) *int {
	score, err := strconv.Atoi(v)
	if err != nil {
		fv, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || fv != float64(int(fv)) {
			failures[models.FieldReviewScore]++
			return nil
		}
		score = int(fv)
	}
	if score < 1 || score > 5 {
		failures[models.FieldReviewScore]++
		return nil
	}
	return &score
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

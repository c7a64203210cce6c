package dataset

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const fullHeader = "order_id,customer_id,product_id,seller_id,product_category_name_english,customer_state,payment_type,price,freight_value,review_score,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date,shipping_limit_date,review_creation_date,review_answer_timestamp"

func parse(t *testing.T, data string) *Dataset {
	t.Helper()
	ds, err := Parse(context.Background(), strings.NewReader(data), quiet)
	require.NoError(t, err)
	return ds
}

func TestParse_FullRow(t *testing.T) {
	data := "\ufeff" + fullHeader + "\n" +
		"o1,c1,p1,s1,toys,SP,credit_card,29.99,8.72,4.0,2017-10-02 10:56:33,2017-10-02 11:07:15,2017-10-04 19:55:00,2017-10-10 21:25:13,2017-10-18 00:00:00,2017-10-06 11:07:15,2017-10-11 00:00:00,2017-10-12 03:43:48\n"

	ds := parse(t, data)

	require.Len(t, ds.Records, 1)
	assert.Empty(t, ds.Warnings)
	assert.Empty(t, ds.Schema.Missing(models.AllFields...), "BOM must not hide the first column")

	r := ds.Records[0]
	assert.Equal(t, "o1", r.OrderID)
	assert.Equal(t, "toys", r.Category)
	require.NotNil(t, r.Price)
	assert.Equal(t, "29.99", r.Price.String())
	require.NotNil(t, r.ReviewScore)
	assert.Equal(t, 4, *r.ReviewScore)
	require.NotNil(t, r.PurchasedAt)
	assert.Equal(t, time.Date(2017, 10, 2, 10, 56, 33, 0, time.UTC), *r.PurchasedAt)
	assert.NotNil(t, r.ReviewAnsweredAt)
}

func TestParse_ColumnOrderAndUnknownColumns(t *testing.T) {
	data := "extra,price,order_id,order_purchase_timestamp\n" +
		"x,10,o1,2018-01-01 08:00:00\n" +
		"y,20,o2,2018-01-02\n"

	ds := parse(t, data)

	require.Len(t, ds.Records, 2)
	assert.Equal(t, "o1", ds.Records[0].OrderID, "input order is preserved")
	assert.Equal(t, "o2", ds.Records[1].OrderID)
	assert.Equal(t, "20", ds.Records[1].Price.String())
	assert.Equal(t, time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC), *ds.Records[1].PurchasedAt)

	assert.True(t, ds.Schema.Has(models.FieldPrice))
	assert.False(t, ds.Schema.Has(models.FieldFreight))
	assert.Contains(t, ds.Warnings, "column freight_value not present; views that need it are disabled")
}

func TestParse_NullsAndBadValues(t *testing.T) {
	data := "order_id,price,review_score,order_purchase_timestamp,order_delivered_customer_date\n" +
		"o1,,NaN,2018-01-01 08:00:00,\n" +
		"o2,abc,7,yesterday,NaT\n" +
		"o3,5.5,3.5,2018-01-03 08:00:00,2018-01-09 08:00:00\n"

	ds := parse(t, data)
	require.Len(t, ds.Records, 3)

	o1 := ds.Records[0]
	assert.Nil(t, o1.Price)
	assert.Nil(t, o1.ReviewScore)
	assert.Nil(t, o1.DeliveredCustomerAt)
	assert.NotNil(t, o1.PurchasedAt)

	o2 := ds.Records[1]
	assert.Nil(t, o2.Price, "unparseable price becomes null")
	assert.Nil(t, o2.ReviewScore, "out-of-range score becomes null")
	assert.Nil(t, o2.PurchasedAt)
	assert.Nil(t, o2.DeliveredCustomerAt)

	assert.Nil(t, ds.Records[2].ReviewScore, "fractional score is rejected")

	joined := strings.Join(ds.Warnings, "\n")
	assert.Contains(t, joined, "1 unparseable values in column price set to null")
	assert.Contains(t, joined, "2 unparseable values in column review_score set to null")
	assert.Contains(t, joined, "1 unparseable values in column order_purchase_timestamp set to null")
}

func TestParse_HeaderOnly(t *testing.T) {
	ds := parse(t, fullHeader+"\n")
	assert.Empty(t, ds.Records)
	assert.Empty(t, ds.Warnings)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader(""), quiet)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, strings.NewReader(fullHeader+"\no1\n"), quiet)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_ManyRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("order_id,price\n")
	const n = batchSize*2 + 17
	for i := range n {
		b.WriteString("o")
		b.WriteString(strings.Repeat("x", i%3))
		b.WriteString(",1.00\n")
	}

	ds := parse(t, b.String())
	require.Len(t, ds.Records, n)
	for i, r := range ds.Records {
		require.Equal(t, "o"+strings.Repeat("x", i%3), r.OrderID, "row %d out of order", i)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main_data.csv")
	data := "order_id,customer_id,price,order_purchase_timestamp,customer_state,product_category_name_english\n" +
		"o1,c1,10.00,2018-01-01 08:00:00,SP,toys\n" +
		"o2,c2,2.50,2018-02-01 08:00:00,RJ,bed_bath_table\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	first, err := Load(context.Background(), path, quiet)
	require.NoError(t, err)
	second, err := Load(context.Background(), path, quiet)
	require.NoError(t, err)

	assert.Equal(t, path, first.Source)
	assert.Equal(t, first.Records, second.Records, "loading is idempotent")
	assert.Equal(t, first.Warnings, second.Warnings)

	f := first.Facets()
	assert.Equal(t, []string{"bed_bath_table", "toys"}, f.Categories)
	assert.Equal(t, []string{"RJ", "SP"}, f.States)
	require.NotNil(t, f.MinPrice)
	assert.Equal(t, 2.5, *f.MinPrice)
	assert.Equal(t, 10.0, *f.MaxPrice)
	assert.Equal(t, time.Date(2018, 2, 1, 8, 0, 0, 0, time.UTC), *f.LastPurchase)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), quiet)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

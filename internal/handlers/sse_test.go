package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/models"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/services"
)

func sseRequest(path, signals string) *http.Request {
	target := path
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewSSEHandlers(analytics, quietLogger())

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", ""))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"datastar-patch-elements",
		"datastar-patch-signals",
		`id="notices"`,
		`id="overview-metrics"`,
		`id="segment-stats"`,
		"monthly_orders",
		"delivery_review_scatter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream should contain %q", want)
		}
	}
}

func TestSSEHandlers_HandleRefreshAll_Signals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", `{"categories":["bed_bath_table"],"review":"all","minPrice":"","tab":"orders","tables":{}}`))

	body := w.Body.String()
	if !strings.Contains(body, `"records":1`) {
		t.Errorf("category signal should narrow the records to 1:\n%s", body)
	}
	if !strings.Contains(body, `"totalRecords":3`) {
		t.Error("total records should be reported")
	}
}

func TestSSEHandlers_HandleRefreshAll_InvalidSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", `{"review":"stellar"}`))

	body := w.Body.String()
	if !strings.Contains(body, "Invalid filter") {
		t.Errorf("invalid signals should be reported as a notice:\n%s", body)
	}
	if strings.Contains(body, "datastar-patch-signals") {
		t.Error("no tables should be sent for an invalid filter")
	}
}

func TestSSEHandlers_HandleRefreshAll_MissingColumns(t *testing.T) {
	analytics := services.NewAnalytics()
	analytics.SetRecords(testRecords(), models.NewSchema(models.FieldOrderID, models.FieldProductID, models.FieldCustomerID, models.FieldSellerID))
	handlers := NewSSEHandlers(analytics, quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", ""))

	body := w.Body.String()
	if !strings.Contains(body, "notice fatal") {
		t.Error("missing purchase timestamp should produce a fatal notice")
	}
	if !strings.Contains(body, "Monthly Order Trends unavailable") {
		t.Error("notice should name the unavailable view")
	}
	if !strings.Contains(body, `id="overview-metrics"`) {
		t.Error("overview should still render")
	}
}

func TestSSEHandlers_HandleRefreshAll_NoData(t *testing.T) {
	handlers := NewSSEHandlers(services.NewAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", ""))

	if !strings.Contains(w.Body.String(), "Dataset not loaded") {
		t.Error("stream should report that no dataset is loaded")
	}
}

func TestSSEHandlers_HandleTab(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), quietLogger())

	tests := []struct {
		tab     string
		want    []string
		notWant []string
	}{
		{"orders", []string{"monthly_orders", "payment_types"}, []string{"review_scores", `id="overview-metrics"`}},
		{"customers", []string{"customer_segments", `id="segment-stats"`}, []string{"monthly_orders"}},
		{"reviews", []string{"on_time_reviews", "review_scores"}, []string{"top_categories"}},
	}

	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			w := serve(handlers.HandleTab, "GET /sse/tabs/{tab}", "/sse/tabs/"+tt.tab)
			body := w.Body.String()

			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("expected event stream, got %q", ct)
			}
			for _, s := range tt.want {
				if !strings.Contains(body, s) {
					t.Errorf("tab %s should contain %q", tt.tab, s)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(body, s) {
					t.Errorf("tab %s should not contain %q", tt.tab, s)
				}
			}
		})
	}
}

func TestSSEHandlers_HandleTab_Unknown(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), quietLogger())

	w := serve(handlers.HandleTab, "GET /sse/tabs/{tab}", "/sse/tabs/settings")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPageHandler_HandleDashboard(t *testing.T) {
	handlers := NewPageHandler(createTestAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<option value="toys">toys</option>`,
		`<option value="SP">SP</option>`,
		"Negative (1-2)",
		`id="tab-delivery"`,
		"Average Delivery Time by State (Days)",
		"/sse/refresh-all",
		`min="2017-01-10"`,
		`max="2017-03-06"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page should contain %q", want)
		}
	}
	if strings.Contains(body, `value="2017-01-10"`) {
		t.Error("date inputs should not be prefilled with the data span")
	}
}

func TestPageHandler_HandleDashboard_NoData(t *testing.T) {
	handlers := NewPageHandler(services.NewAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Dataset not loaded") {
		t.Error("page should say the dataset is not loaded")
	}
}

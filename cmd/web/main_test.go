package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/config"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/services"
)

const testCSV = `order_id,customer_id,product_id,seller_id,product_category_name_english,customer_state,payment_type,price,freight_value,review_score,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date,shipping_limit_date,review_creation_date,review_answer_timestamp
o1,c1,p1,s1,toys,SP,credit_card,100.00,10.00,5,2017-01-10 10:00:00,2017-01-10 11:00:00,2017-01-11 09:00:00,2017-01-15 10:00:00,2017-01-20 00:00:00,2017-01-12 10:00:00,2017-01-16 00:00:00,2017-01-17 12:00:00
o2,c2,p2,s1,bed_bath_table,RJ,boleto,50.00,5.00,1,2017-03-05 14:30:00,2017-03-06 08:00:00,2017-03-07 10:00:00,2017-03-20 14:30:00,2017-03-15 00:00:00,2017-03-09 14:30:00,2017-03-21 00:00:00,2017-03-22 10:00:00
o3,c1,p3,s2,toys,SP,credit_card,20.00,2.00,4,2017-03-06 09:00:00,2017-03-06 09:30:00,,,2017-03-25 00:00:00,2017-03-10 09:00:00,,
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		Analysis: config.AnalysisConfig{
			TopCategories:      15,
			RegionalCategories: 5,
			DeliveryTrendStart: "2017-01-01",
			ValueCap:           1000,
			ValueBins:          50,
			Workers:            2,
		},
		Security: config.SecurityConfig{
			RateLimitRPS:   100,
			RateLimitBurst: 10,
			AllowedOrigins: []string{"http://localhost:8084"},
			TrustedProxies: []string{"127.0.0.1"},
		},
	}
}

func newTestHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	path := filepath.Join(t.TempDir(), "main_data.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := pipelineSettings(cfg.Analysis)
	if err != nil {
		t.Fatalf("pipelineSettings() error = %v", err)
	}
	analytics := services.NewAnalytics(services.WithLogger(logger), services.WithSettings(settings))
	if err := analytics.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatalf("LoadFromCSV() error = %v", err)
	}
	return newHandler(cfg, analytics, logger)
}

func TestPipelineSettings(t *testing.T) {
	settings, err := pipelineSettings(testConfig().Analysis)
	if err != nil {
		t.Fatalf("pipelineSettings() error = %v", err)
	}
	if !settings.DeliveryTrendStart.Equal(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DeliveryTrendStart = %v", settings.DeliveryTrendStart)
	}
	if settings.TopCategories != 15 || settings.ValueBins != 50 {
		t.Errorf("settings = %+v", settings)
	}

	bad := testConfig().Analysis
	bad.DeliveryTrendStart = "January 2017"
	if _, err := pipelineSettings(bad); err == nil {
		t.Error("expected error for malformed trend start")
	}
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	handler := newTestHandler(t, testConfig())

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/api/dashboard", http.StatusOK, "application/json"},
		{"/api/facets", http.StatusOK, "application/json"},
		{"/api/pipelines", http.StatusOK, "application/json"},
		{"/api/pipelines/monthly_orders", http.StatusOK, "application/json"},
		{"/api/pipelines/delivery_by_month", http.StatusOK, "application/json"},
		{"/api/customers", http.StatusOK, "application/json"},
		{"/api/records", http.StatusOK, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/sse/refresh-all", http.StatusOK, "text/event-stream"},
		{"/sse/tabs/delivery", http.StatusOK, "text/event-stream"},
		{"/api/pipelines/nope", http.StatusNotFound, "application/json"},
		{"/sse/tabs/nope", http.StatusNotFound, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)

			handler.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

func TestServer_DeliveryTrendCutoff(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.DeliveryTrendStart = "2017-02-01"
	handler := newTestHandler(t, cfg)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pipelines/delivery_by_month", nil))

	var response struct {
		Data []struct {
			Group string   `json:"group"`
			Mean  *float64 `json:"mean_delivery_days"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(response.Data) != 2 || response.Data[0].Group != "2017-02" || response.Data[1].Group != "2017-03" {
		t.Fatalf("delivery_by_month = %+v", response.Data)
	}
	if response.Data[0].Mean != nil {
		t.Error("February has no deliveries and should have a null mean")
	}
	if response.Data[1].Mean == nil || *response.Data[1].Mean != 15 {
		t.Errorf("March mean = %v, want 15", response.Data[1].Mean)
	}
}

func TestServer_Middleware(t *testing.T) {
	handler := newTestHandler(t, testConfig())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://localhost:8084")
	handler.ServeHTTP(w, r)

	if _, err := uuid.Parse(w.Header().Get("X-Request-ID")); err != nil {
		t.Errorf("X-Request-ID should be a UUID: %v", err)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8084" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableRateLimit = true
	cfg.Security.RateLimitRPS = 1
	cfg.Security.RateLimitBurst = 1
	handler := newTestHandler(t, cfg)

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK {
		t.Errorf("first request status = %d, want 200", codes[0])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("burst exceeded status = %d, want 429", codes[2])
	}
}

// Test error handling for invalid methods
func TestServer_ErrorHandling(t *testing.T) {
	handler := newTestHandler(t, testConfig())

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/dashboard", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"PATCH", "/api/customers", http.StatusMethodNotAllowed},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			handler.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

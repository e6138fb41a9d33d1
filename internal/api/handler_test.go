package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/spimexhq/oilpulse/internal/domain/dto"
	"github.com/spimexhq/oilpulse/internal/domain/models"
	"github.com/spimexhq/oilpulse/internal/service"
	"github.com/spimexhq/oilpulse/internal/storage"
)

type mockTradingService struct {
	dates   []time.Time
	results []models.StoredTradingResult
	err     error

	gotLimit    int
	gotDynamics storage.DynamicsFilter
	gotResults  storage.ResultsFilter
}

func (m *mockTradingService) GetLastTradingDates(_ context.Context, limit int) ([]time.Time, error) {
	m.gotLimit = limit
	return m.dates, m.err
}

func (m *mockTradingService) GetDynamics(_ context.Context, filter storage.DynamicsFilter) ([]models.StoredTradingResult, error) {
	m.gotDynamics = filter
	return m.results, m.err
}

func (m *mockTradingService) GetTradingResults(_ context.Context, filter storage.ResultsFilter) ([]models.StoredTradingResult, error) {
	m.gotResults = filter
	return m.results, m.err
}

var _ service.TradingService = (*mockTradingService)(nil)

type mockReportService struct {
	files []string
	count int
	err   error

	gotStart time.Time
	gotEnd   time.Time
}

func (m *mockReportService) DownloadReports(_ context.Context, start, end time.Time) ([]string, error) {
	m.gotStart, m.gotEnd = start, end
	return m.files, m.err
}

func (m *mockReportService) ProcessReports(context.Context) (int, error) {
	return m.count, m.err
}

var _ service.ReportService = (*mockReportService)(nil)

func setupRouter(trading service.TradingService, reports service.ReportService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(trading, reports)
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/reports/download", h.DownloadReports)
	v1.POST("/reports/process", h.ProcessReports)
	v1.GET("/trading/last-dates", h.GetLastTradingDates)
	v1.GET("/trading/dynamics", h.GetDynamics)
	v1.GET("/trading/results", h.GetTradingResults)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestDownloadReports_TableDriven(t *testing.T) {
	cases := []struct {
		name   string
		svc    *mockReportService
		query  string
		status int
		assert func(t *testing.T, svc *mockReportService, body []byte)
	}{
		{
			name:   "invalid start date",
			svc:    &mockReportService{},
			query:  "/api/v1/reports/download?start_date=2023/01/01",
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid end date",
			svc:    &mockReportService{},
			query:  "/api/v1/reports/download?end_date=bad",
			status: http.StatusBadRequest,
		},
		{
			name:   "end before start",
			svc:    &mockReportService{},
			query:  "/api/v1/reports/download?start_date=2023-02-01&end_date=2023-01-01",
			status: http.StatusBadRequest,
		},
		{
			name:   "service failure",
			svc:    &mockReportService{err: errors.New("site down")},
			query:  "/api/v1/reports/download",
			status: http.StatusInternalServerError,
		},
		{
			name:   "explicit range",
			svc:    &mockReportService{files: []string{"data/reports/oil_xls_20230110.xls"}},
			query:  "/api/v1/reports/download?start_date=2023-01-01&end_date=2023-01-31",
			status: http.StatusOK,
			assert: func(t *testing.T, svc *mockReportService, body []byte) {
				if got := svc.gotStart.Format("2006-01-02"); got != "2023-01-01" {
					t.Fatalf("start not passed through: %s", got)
				}
				if got := svc.gotEnd.Format("2006-01-02"); got != "2023-01-31" {
					t.Fatalf("end not passed through: %s", got)
				}
				var out dto.DownloadReportsResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if len(out.Files) != 1 {
					t.Fatalf("unexpected files: %v", out.Files)
				}
			},
		},
		{
			name:   "nothing discovered serializes empty list",
			svc:    &mockReportService{files: nil},
			query:  "/api/v1/reports/download",
			status: http.StatusOK,
			assert: func(t *testing.T, _ *mockReportService, body []byte) {
				var out map[string]json.RawMessage
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if string(out["files"]) != "[]" {
					t.Fatalf("expected empty array, got %s", out["files"])
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouter(&mockTradingService{}, tc.svc)
			w := doRequest(t, r, http.MethodPost, tc.query)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.assert != nil {
				tc.assert(t, tc.svc, w.Body.Bytes())
			}
		})
	}
}

func TestProcessReports(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := setupRouter(&mockTradingService{}, &mockReportService{count: 42})
		w := doRequest(t, r, http.MethodPost, "/api/v1/reports/process")
		if w.Code != http.StatusOK {
			t.Fatalf("code=%d", w.Code)
		}
		var out dto.ProcessReportsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if out.RecordsProcessed != 42 {
			t.Fatalf("expected 42 records, got %d", out.RecordsProcessed)
		}
	})

	t.Run("failure", func(t *testing.T) {
		r := setupRouter(&mockTradingService{}, &mockReportService{err: errors.New("db down")})
		w := doRequest(t, r, http.MethodPost, "/api/v1/reports/process")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("code=%d", w.Code)
		}
	})
}

func TestGetLastTradingDates_Handler(t *testing.T) {
	cases := []struct {
		name      string
		svc       *mockTradingService
		query     string
		status    int
		wantLimit int
		wantDates []string
	}{
		{
			name:   "invalid limit",
			svc:    &mockTradingService{},
			query:  "/api/v1/trading/last-dates?limit=zero",
			status: http.StatusBadRequest,
		},
		{
			name:   "negative limit",
			svc:    &mockTradingService{},
			query:  "/api/v1/trading/last-dates?limit=-3",
			status: http.StatusBadRequest,
		},
		{
			name:   "service failure",
			svc:    &mockTradingService{err: errors.New("db down")},
			query:  "/api/v1/trading/last-dates",
			status: http.StatusInternalServerError,
		},
		{
			name: "default limit",
			svc: &mockTradingService{dates: []time.Time{
				time.Date(2023, 1, 11, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
			}},
			query:     "/api/v1/trading/last-dates",
			status:    http.StatusOK,
			wantLimit: 10,
			wantDates: []string{"2023-01-11", "2023-01-10"},
		},
		{
			name:      "explicit limit",
			svc:       &mockTradingService{dates: []time.Time{time.Date(2023, 1, 11, 0, 0, 0, 0, time.UTC)}},
			query:     "/api/v1/trading/last-dates?limit=1",
			status:    http.StatusOK,
			wantLimit: 1,
			wantDates: []string{"2023-01-11"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouter(tc.svc, &mockReportService{})
			w := doRequest(t, r, http.MethodGet, tc.query)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.status != http.StatusOK {
				return
			}
			if tc.svc.gotLimit != tc.wantLimit {
				t.Fatalf("expected limit %d, got %d", tc.wantLimit, tc.svc.gotLimit)
			}
			var out dto.LastDatesResponse
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(out.Dates) != len(tc.wantDates) {
				t.Fatalf("expected %v, got %v", tc.wantDates, out.Dates)
			}
			for i := range out.Dates {
				if out.Dates[i] != tc.wantDates[i] {
					t.Fatalf("expected %v, got %v", tc.wantDates, out.Dates)
				}
			}
		})
	}
}

func storedRecord() models.StoredTradingResult {
	return models.StoredTradingResult{
		ID: 1,
		TradingResult: models.TradingResult{
			ExchangeProductID:   "A100ANK060F",
			ExchangeProductName: "Бензин (АИ-100-К5)",
			OilID:               "A100ANK060",
			DeliveryBasisID:     "ANK060F",
			DeliveryBasisName:   "ст. Аникеевка",
			DeliveryTypeID:      "K060F",
			Volume:              decimal.NullDecimal{Decimal: decimal.RequireFromString("100"), Valid: true},
			Count:               5,
			Date:                time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestGetDynamics_Handler(t *testing.T) {
	t.Run("missing range", func(t *testing.T) {
		r := setupRouter(&mockTradingService{}, &mockReportService{})
		w := doRequest(t, r, http.MethodGet, "/api/v1/trading/dynamics?start_date=2023-01-01")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("code=%d", w.Code)
		}
	})

	t.Run("invalid date format", func(t *testing.T) {
		r := setupRouter(&mockTradingService{}, &mockReportService{})
		w := doRequest(t, r, http.MethodGet, "/api/v1/trading/dynamics?start_date=01.01.2023&end_date=2023-01-31")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("code=%d", w.Code)
		}
	})

	t.Run("success with filters", func(t *testing.T) {
		svc := &mockTradingService{results: []models.StoredTradingResult{storedRecord()}}
		r := setupRouter(svc, &mockReportService{})
		w := doRequest(t, r, http.MethodGet,
			"/api/v1/trading/dynamics?start_date=2023-01-01&end_date=2023-01-31&oil_id=A100ANK060&delivery_type_id=K060F")
		if w.Code != http.StatusOK {
			t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
		}
		if svc.gotDynamics.OilID != "A100ANK060" || svc.gotDynamics.DeliveryTypeID != "K060F" {
			t.Fatalf("filters not passed through: %+v", svc.gotDynamics)
		}

		var out dto.TradingResultsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(out.Results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(out.Results))
		}
		rec := out.Results[0]
		if rec.Volume == nil || *rec.Volume != 100 {
			t.Fatalf("expected volume 100, got %v", rec.Volume)
		}
		if rec.Total != nil {
			t.Fatalf("expected null total, got %v", *rec.Total)
		}
		if rec.Date != "2023-01-10" {
			t.Fatalf("unexpected date %q", rec.Date)
		}
	})
}

func TestGetTradingResults_Handler(t *testing.T) {
	t.Run("invalid limit", func(t *testing.T) {
		r := setupRouter(&mockTradingService{}, &mockReportService{})
		w := doRequest(t, r, http.MethodGet, "/api/v1/trading/results?limit=0")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("code=%d", w.Code)
		}
	})

	t.Run("defaults and filters", func(t *testing.T) {
		svc := &mockTradingService{results: []models.StoredTradingResult{storedRecord()}}
		r := setupRouter(svc, &mockReportService{})
		w := doRequest(t, r, http.MethodGet, "/api/v1/trading/results?delivery_basis_id=ANK060F")
		if w.Code != http.StatusOK {
			t.Fatalf("code=%d", w.Code)
		}
		if svc.gotResults.Limit != 100 {
			t.Fatalf("expected default limit 100, got %d", svc.gotResults.Limit)
		}
		if svc.gotResults.DeliveryBasisID != "ANK060F" {
			t.Fatalf("filter not passed through: %+v", svc.gotResults)
		}
	})

	t.Run("service failure", func(t *testing.T) {
		r := setupRouter(&mockTradingService{err: errors.New("db down")}, &mockReportService{})
		w := doRequest(t, r, http.MethodGet, "/api/v1/trading/results")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("code=%d", w.Code)
		}
	})
}

type deadlineTradingService struct {
	mockTradingService
	hasDeadline bool
}

func (d *deadlineTradingService) GetLastTradingDates(ctx context.Context, limit int) ([]time.Time, error) {
	_, d.hasDeadline = ctx.Deadline()
	return d.mockTradingService.GetLastTradingDates(ctx, limit)
}

type deadlineReportService struct {
	mockReportService
	hasDeadline bool
}

func (d *deadlineReportService) DownloadReports(ctx context.Context, start, end time.Time) ([]string, error) {
	_, d.hasDeadline = ctx.Deadline()
	return d.mockReportService.DownloadReports(ctx, start, end)
}

func TestNewRouter_TimeoutOnlyOnTradingRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	trading := &deadlineTradingService{}
	reports := &deadlineReportService{}
	r := NewRouter(NewHandler(trading, reports))

	w := doRequest(t, r, http.MethodGet, "/api/v1/trading/last-dates")
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d (%s)", w.Code, w.Body.String())
	}
	if !trading.hasDeadline {
		t.Fatalf("trading route should carry a request deadline")
	}

	w = doRequest(t, r, http.MethodPost, "/api/v1/reports/download")
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d (%s)", w.Code, w.Body.String())
	}
	if reports.hasDeadline {
		t.Fatalf("report pipeline route must not carry a request deadline")
	}
}

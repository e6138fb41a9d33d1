package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spimexhq/oilpulse/internal/domain/dto"
	"github.com/spimexhq/oilpulse/internal/domain/models"
	"github.com/spimexhq/oilpulse/internal/middleware"
	"github.com/spimexhq/oilpulse/internal/service"
	"github.com/spimexhq/oilpulse/internal/storage"
)

const dateLayout = "2006-01-02"

// defaultDownloadStart is the earliest bulletin the pipeline reaches for when
// no explicit start date is requested.
var defaultDownloadStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// Handler provides HTTP handlers for the ingestion pipeline and the read-side
// trading queries.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Invoke the service layer
//   - Translate results into response DTOs with appropriate status codes
type Handler struct {
	trading service.TradingService
	reports service.ReportService
}

// NewHandler constructs a new Handler instance.
func NewHandler(trading service.TradingService, reports service.ReportService) *Handler {
	return &Handler{trading: trading, reports: reports}
}

// DownloadReports handles POST /api/v1/reports/download requests.
//
// DownloadReports godoc
// @Summary      Download daily bulletins
// @Description  Discovers and saves every bulletin in the requested date range
// @Tags         reports
// @Produce      json
// @Param        start_date  query     string  false  "Start date in YYYY-MM-DD"  example(2023-01-01)
// @Param        end_date    query     string  false  "End date in YYYY-MM-DD"    example(2023-01-10)
// @Success      200         {object}  dto.DownloadReportsResponse  "Success"
// @Failure      400         {object}  dto.ErrorResponse            "Bad Request"
// @Failure      500         {object}  dto.ErrorResponse            "Internal Error"
// @Router       /api/v1/reports/download [post]
func (h *Handler) DownloadReports(c *gin.Context) {
	start := defaultDownloadStart
	end := time.Now().UTC().Truncate(24 * time.Hour)

	if s := c.Query("start_date"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start_date format, expected YYYY-MM-DD", err))
			return
		}
		start = parsed
	}
	if s := c.Query("end_date"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end_date format, expected YYYY-MM-DD", err))
			return
		}
		end = parsed
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("end_date precedes start_date", nil))
		return
	}

	files, err := h.reports.DownloadReports(c.Request.Context(), start, end)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to download reports", err)
		return
	}
	if files == nil {
		files = []string{}
	}

	c.JSON(http.StatusOK, dto.DownloadReportsResponse{Files: files})
}

// ProcessReports handles POST /api/v1/reports/process requests.
//
// ProcessReports godoc
// @Summary      Process saved bulletins
// @Description  Extracts and persists every saved bulletin file
// @Tags         reports
// @Produce      json
// @Success      200  {object}  dto.ProcessReportsResponse  "Success"
// @Failure      500  {object}  dto.ErrorResponse           "Internal Error"
// @Router       /api/v1/reports/process [post]
func (h *Handler) ProcessReports(c *gin.Context) {
	count, err := h.reports.ProcessReports(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to process reports", err)
		return
	}

	c.JSON(http.StatusOK, dto.ProcessReportsResponse{
		Message:          "reports processed",
		RecordsProcessed: count,
	})
}

// GetLastTradingDates handles GET /api/v1/trading/last-dates requests.
//
// GetLastTradingDates godoc
// @Summary      Last trading dates
// @Description  Returns the most recent trading dates with ingested records
// @Tags         trading
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of dates"  example(10)
// @Success      200    {object}  dto.LastDatesResponse  "Success"
// @Failure      400    {object}  dto.ErrorResponse      "Bad Request"
// @Failure      500    {object}  dto.ErrorResponse      "Internal Error"
// @Router       /api/v1/trading/last-dates [get]
func (h *Handler) GetLastTradingDates(c *gin.Context) {
	limit := 10
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit, expected positive integer", err))
			return
		}
		limit = v
	}

	dates, err := h.trading.GetLastTradingDates(c.Request.Context(), limit)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch trading dates", err)
		return
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	c.JSON(http.StatusOK, dto.LastDatesResponse{Dates: out})
}

// GetDynamics handles GET /api/v1/trading/dynamics requests.
//
// GetDynamics godoc
// @Summary      Trading dynamics over a date range
// @Description  Returns records between start_date and end_date, optionally filtered by derived identifiers
// @Tags         trading
// @Produce      json
// @Param        start_date         query     string  true   "Start date in YYYY-MM-DD"
// @Param        end_date           query     string  true   "End date in YYYY-MM-DD"
// @Param        oil_id             query     string  false  "Oil identifier"
// @Param        delivery_type_id   query     string  false  "Delivery type identifier"
// @Param        delivery_basis_id  query     string  false  "Delivery basis identifier"
// @Success      200                {object}  dto.TradingResultsResponse  "Success"
// @Failure      400                {object}  dto.ErrorResponse           "Bad Request"
// @Failure      500                {object}  dto.ErrorResponse           "Internal Error"
// @Router       /api/v1/trading/dynamics [get]
func (h *Handler) GetDynamics(c *gin.Context) {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr == "" || endStr == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("start_date and end_date are required", nil))
		return
	}
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start_date format, expected YYYY-MM-DD", err))
		return
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end_date format, expected YYYY-MM-DD", err))
		return
	}

	results, err := h.trading.GetDynamics(c.Request.Context(), storage.DynamicsFilter{
		StartDate:       start,
		EndDate:         end,
		OilID:           strings.TrimSpace(c.Query("oil_id")),
		DeliveryTypeID:  strings.TrimSpace(c.Query("delivery_type_id")),
		DeliveryBasisID: strings.TrimSpace(c.Query("delivery_basis_id")),
	})
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch dynamics", err)
		return
	}

	c.JSON(http.StatusOK, toResultsResponse(results))
}

// GetTradingResults handles GET /api/v1/trading/results requests.
//
// GetTradingResults godoc
// @Summary      Latest trading results
// @Description  Returns the most recent records, optionally filtered by derived identifiers
// @Tags         trading
// @Produce      json
// @Param        oil_id             query     string  false  "Oil identifier"
// @Param        delivery_type_id   query     string  false  "Delivery type identifier"
// @Param        delivery_basis_id  query     string  false  "Delivery basis identifier"
// @Param        limit              query     int     false  "Maximum number of records"  example(100)
// @Success      200                {object}  dto.TradingResultsResponse  "Success"
// @Failure      400                {object}  dto.ErrorResponse           "Bad Request"
// @Failure      500                {object}  dto.ErrorResponse           "Internal Error"
// @Router       /api/v1/trading/results [get]
func (h *Handler) GetTradingResults(c *gin.Context) {
	limit := 100
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit, expected positive integer", err))
			return
		}
		limit = v
	}

	results, err := h.trading.GetTradingResults(c.Request.Context(), storage.ResultsFilter{
		OilID:           strings.TrimSpace(c.Query("oil_id")),
		DeliveryTypeID:  strings.TrimSpace(c.Query("delivery_type_id")),
		DeliveryBasisID: strings.TrimSpace(c.Query("delivery_basis_id")),
		Limit:           limit,
	})
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch trading results", err)
		return
	}

	c.JSON(http.StatusOK, toResultsResponse(results))
}

func toResultsResponse(records []models.StoredTradingResult) dto.TradingResultsResponse {
	out := dto.TradingResultsResponse{Results: make([]dto.TradingResultResponse, 0, len(records))}
	for _, r := range records {
		resp := dto.TradingResultResponse{
			ID:                  r.ID,
			ExchangeProductID:   r.ExchangeProductID,
			ExchangeProductName: r.ExchangeProductName,
			OilID:               r.OilID,
			DeliveryBasisID:     r.DeliveryBasisID,
			DeliveryBasisName:   r.DeliveryBasisName,
			DeliveryTypeID:      r.DeliveryTypeID,
			Count:               r.Count,
			Date:                r.Date.Format(dateLayout),
		}
		if r.Volume.Valid {
			v := r.Volume.Decimal.InexactFloat64()
			resp.Volume = &v
		}
		if r.Total.Valid {
			v := r.Total.Decimal.InexactFloat64()
			resp.Total = &v
		}
		if !r.CreatedOn.IsZero() {
			resp.CreatedOn = r.CreatedOn.Format(time.RFC3339)
		}
		if !r.UpdatedOn.IsZero() {
			resp.UpdatedOn = r.UpdatedOn.Format(time.RFC3339)
		}
		out.Results = append(out.Results, resp)
	}
	return out
}

package dto

// DownloadReportsResponse is returned by POST /api/v1/reports/download.
type DownloadReportsResponse struct {
	Files []string `json:"files"`
}

// ProcessReportsResponse is returned by POST /api/v1/reports/process.
type ProcessReportsResponse struct {
	Message          string `json:"message" example:"reports processed"`
	RecordsProcessed int    `json:"records_processed" example:"1250"`
}

// LastDatesResponse is returned by GET /api/v1/trading/last-dates.
type LastDatesResponse struct {
	Dates []string `json:"dates"`
}

// TradingResultResponse is one persisted trading record as exposed by the API.
//
// Volume and Total are pointers so that NULL database values serialize as
// JSON null rather than 0.
type TradingResultResponse struct {
	ID                  int64    `json:"id"`
	ExchangeProductID   string   `json:"exchange_product_id" example:"A100ANK060F"`
	ExchangeProductName string   `json:"exchange_product_name"`
	OilID               string   `json:"oil_id" example:"A100ANK060"`
	DeliveryBasisID     string   `json:"delivery_basis_id"`
	DeliveryBasisName   string   `json:"delivery_basis_name"`
	DeliveryTypeID      string   `json:"delivery_type_id"`
	Volume              *float64 `json:"volume"`
	Total               *float64 `json:"total"`
	Count               int      `json:"count" example:"5"`
	Date                string   `json:"date" example:"2023-01-09"`
	CreatedOn           string   `json:"created_on,omitempty"`
	UpdatedOn           string   `json:"updated_on,omitempty"`
}

// TradingResultsResponse wraps a list of records for the dynamics/results endpoints.
type TradingResultsResponse struct {
	Results []TradingResultResponse `json:"results"`
}

package storage

import (
	"database/sql"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/spimexhq/oilpulse/internal/domain/models"
)

// DynamicsFilter selects records for a date range, optionally narrowed by the
// derived product sub-identifiers. Empty string filters are not applied.
type DynamicsFilter struct {
	StartDate       time.Time
	EndDate         time.Time
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
}

// ResultsFilter selects the latest records, optionally narrowed by the derived
// product sub-identifiers.
type ResultsFilter struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Limit           int
}

// TradingRepository defines the contract for trading-result persistence.
type TradingRepository interface {
	InsertResultsBatch(results []models.TradingResult) (int, error)
	GetLastTradingDates(limit int) ([]time.Time, error)
	GetDynamics(filter DynamicsFilter) ([]models.StoredTradingResult, error)
	GetTradingResults(filter ResultsFilter) ([]models.StoredTradingResult, error)
}

type tradingRepository struct {
	db *sql.DB
}

func NewTradingRepository(db *sql.DB) TradingRepository {
	return &tradingRepository{db: db}
}

const resultColumns = `id, exchange_product_id, exchange_product_name, oil_id,
	delivery_basis_id, delivery_basis_name, delivery_type_id,
	volume, total, count, date, created_on, updated_on`

// InsertResultsBatch bulk-loads one extracted batch inside a single transaction.
//
// All-or-nothing per file: any failure rolls the transaction back and reports
// zero committed, so a partially-written batch can never exist.
func (r *tradingRepository) InsertResultsBatch(results []models.TradingResult) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}

	// Small optimization for bulk load
	if _, err := tx.Exec(`SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	stmt, err := tx.Prepare(pq.CopyIn(
		"spimex_trading_results",
		"exchange_product_id",
		"exchange_product_name",
		"oil_id",
		"delivery_basis_id",
		"delivery_basis_name",
		"delivery_type_id",
		"volume",
		"total",
		"count",
		"date",
	))
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	for _, rec := range results {
		if _, err := stmt.Exec(
			rec.ExchangeProductID,
			rec.ExchangeProductName,
			rec.OilID,
			rec.DeliveryBasisID,
			rec.DeliveryBasisName,
			rec.DeliveryTypeID,
			rec.Volume,
			rec.Total,
			rec.Count,
			rec.Date,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, err
		}
	}

	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return 0, err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(results), nil
}

// GetLastTradingDates returns the most recent distinct trading dates, newest first.
func (r *tradingRepository) GetLastTradingDates(limit int) ([]time.Time, error) {
	rows, err := r.db.Query(
		`SELECT DISTINCT date FROM spimex_trading_results ORDER BY date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// GetDynamics returns records inside the filter's date range, date descending
// then insertion order.
func (r *tradingRepository) GetDynamics(filter DynamicsFilter) ([]models.StoredTradingResult, error) {
	conditions := "date >= $1 AND date <= $2"
	args := []interface{}{filter.StartDate, filter.EndDate}
	conditions, args = appendIDFilters(conditions, args, filter.OilID, filter.DeliveryTypeID, filter.DeliveryBasisID)

	query := fmt.Sprintf(
		`SELECT %s FROM spimex_trading_results WHERE %s ORDER BY date DESC, id`,
		resultColumns, conditions)

	return r.queryResults(query, args)
}

// GetTradingResults returns the latest records matching the filter.
func (r *tradingRepository) GetTradingResults(filter ResultsFilter) ([]models.StoredTradingResult, error) {
	conditions := "TRUE"
	var args []interface{}
	conditions, args = appendIDFilters(conditions, args, filter.OilID, filter.DeliveryTypeID, filter.DeliveryBasisID)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT %s FROM spimex_trading_results WHERE %s ORDER BY date DESC, id DESC LIMIT $%d`,
		resultColumns, conditions, len(args))

	return r.queryResults(query, args)
}

// appendIDFilters extends a WHERE fragment with the optional sub-identifier
// equality filters, keeping positional placeholders consistent.
func appendIDFilters(conditions string, args []interface{}, oilID, deliveryTypeID, deliveryBasisID string) (string, []interface{}) {
	if oilID != "" {
		args = append(args, oilID)
		conditions += fmt.Sprintf(" AND oil_id = $%d", len(args))
	}
	if deliveryTypeID != "" {
		args = append(args, deliveryTypeID)
		conditions += fmt.Sprintf(" AND delivery_type_id = $%d", len(args))
	}
	if deliveryBasisID != "" {
		args = append(args, deliveryBasisID)
		conditions += fmt.Sprintf(" AND delivery_basis_id = $%d", len(args))
	}
	return conditions, args
}

func (r *tradingRepository) queryResults(query string, args []interface{}) ([]models.StoredTradingResult, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.StoredTradingResult
	for rows.Next() {
		var rec models.StoredTradingResult
		if err := rows.Scan(
			&rec.ID,
			&rec.ExchangeProductID,
			&rec.ExchangeProductName,
			&rec.OilID,
			&rec.DeliveryBasisID,
			&rec.DeliveryBasisName,
			&rec.DeliveryTypeID,
			&rec.Volume,
			&rec.Total,
			&rec.Count,
			&rec.Date,
			&rec.CreatedOn,
			&rec.UpdatedOn,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

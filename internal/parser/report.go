package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/spimexhq/oilpulse/internal/domain/models"
)

const (
	sheetName = "TRADE_SUMMARY"

	// anchorMarker identifies the metric-tonne table section; the table's
	// header row is the row immediately after the one containing it.
	anchorMarker = "Единица измерения: Метрическая тонна"
	// totalsMarker identifies the first row after the table body.
	totalsMarker = "Итого:"
)

// Raw header names as they appear in the bulletin, after whitespace
// normalization. The table position varies between files; the header set
// does not.
const (
	colProductID   = "Код Инструмента"
	colProductName = "Наименование Инструмента"
	colBasisName   = "Базис поставки"
	colVolume      = "Объем Договоров в единицах измерения"
	colTotal       = "Обьем Договоров, руб."
	colCount       = "Количество Договоров, шт."
)

var requiredColumns = []string{colProductID, colProductName, colBasisName, colVolume, colTotal, colCount}

// Truncation limits of the persisted record fields.
const (
	maxProductIDLen   = 20
	maxProductNameLen = 1000
	maxBasisNameLen   = 500
)

// ParseReportFile extracts validated trading records from one bulletin file.
//
// The worksheet is read as an untyped grid; the data table is located by its
// section marker and totals boundary, headers are normalized and mapped to
// canonical fields, and rows without a positive contract count are discarded.
// A missing marker, boundary, or required column fails the whole file. An
// empty result with a nil error means "nothing to persist".
func ParseReportFile(path string, reportDate time.Time) ([]models.TradingResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}

	anchor := findRowContaining(rows, 0, anchorMarker)
	if anchor < 0 {
		return nil, fmt.Errorf("metric-tonne section marker not found")
	}
	end := findRowContaining(rows, anchor+1, totalsMarker)
	if end < 0 {
		return nil, fmt.Errorf("totals boundary not found after row %d", anchor+1)
	}
	if anchor+1 >= end {
		// Marker immediately followed by totals: a table with no header row.
		return nil, fmt.Errorf("no header row between marker and totals boundary")
	}

	cols := make(map[string]int, len(rows[anchor+1]))
	for i, h := range rows[anchor+1] {
		cols[normalizeHeader(h)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("required column %q missing", name)
		}
	}

	var out []models.TradingResult
	for i := anchor + 2; i < end; i++ {
		row := rows[i]

		count, ok := parseCount(cell(row, cols[colCount]))
		if !ok || count <= 0 {
			continue
		}
		code := truncate(strings.TrimSpace(cell(row, cols[colProductID])), maxProductIDLen)
		if code == "" {
			continue
		}

		id := DeriveProductID(code)
		out = append(out, models.TradingResult{
			ExchangeProductID:   code,
			ExchangeProductName: truncate(strings.TrimSpace(cell(row, cols[colProductName])), maxProductNameLen),
			OilID:               id.OilID,
			DeliveryBasisID:     id.DeliveryBasisID,
			DeliveryBasisName:   truncate(strings.TrimSpace(cell(row, cols[colBasisName])), maxBasisNameLen),
			DeliveryTypeID:      id.DeliveryTypeID,
			Volume:              parseNullDecimal(cell(row, cols[colVolume])),
			Total:               parseNullDecimal(cell(row, cols[colTotal])),
			Count:               count,
			Date:                reportDate,
		})
	}

	return out, nil
}

// findRowContaining returns the index of the first row at or after from whose
// cells contain the marker, or -1.
func findRowContaining(rows [][]string, from int, marker string) int {
	for i := from; i < len(rows); i++ {
		for _, c := range rows[i] {
			if strings.Contains(c, marker) {
				return i
			}
		}
	}
	return -1
}

// normalizeHeader collapses the embedded newlines and non-breaking spaces the
// exchange puts into multi-line header cells.
func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\n", " ")
	h = strings.ReplaceAll(h, "\u00a0", " ")
	return strings.TrimSpace(h)
}

// cell returns the i-th cell of a row, tolerating the ragged rows the grid
// reader produces (trailing empty cells are trimmed).
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// cleanNumber strips grouping spaces and unifies the decimal separator.
func cleanNumber(s string) string {
	return strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(strings.TrimSpace(s))
}

// parseCount parses a contract count cell. Missing and non-numeric values
// report !ok; the caller drops those rows. Fractional values such as "2.7"
// are accepted and truncated toward zero.
func parseCount(s string) (int, bool) {
	s = cleanNumber(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// parseNullDecimal coerces a numeric cell; failures yield NULL, not a dropped row.
func parseNullDecimal(s string) decimal.NullDecimal {
	s = cleanNumber(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// truncate limits a string to n characters; names are Cyrillic, so the limit
// counts runes, not bytes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

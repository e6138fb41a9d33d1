package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingResult is one validated row extracted from a daily oil-products bulletin.
//
// Volume and Total are nullable on purpose: the exchange leaves those cells empty
// or non-numeric for some instruments, and an absent value must stay distinct
// from an explicit zero. Count is always positive; rows without a positive
// contract count never leave the extractor.
type TradingResult struct {
	ExchangeProductID   string              // packed instrument code, at most 20 chars
	ExchangeProductName string              // instrument name, at most 1000 chars
	OilID               string              // first 10 chars of the product code
	DeliveryBasisID     string              // chars 4..14 of the product code
	DeliveryBasisName   string              // delivery basis name, at most 500 chars
	DeliveryTypeID      string              // last 5 chars of the product code
	Volume              decimal.NullDecimal // contract volume in units of measurement
	Total               decimal.NullDecimal // contract total, RUB
	Count               int                 // number of contracts, > 0
	Date                time.Time           // trading date the bulletin pertains to
}

// StoredTradingResult is a TradingResult as it exists in the database,
// with the autogenerated key and server-set timestamps.
type StoredTradingResult struct {
	ID        int64
	CreatedOn time.Time
	UpdatedOn time.Time
	TradingResult
}

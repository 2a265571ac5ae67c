package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSummary represents an account's derived analytics for API responses
type AccountSummary struct {
	Name        string  `json:"name"`
	Reputation  float64 `json:"reputation"`
	Power       string  `json:"power"`
	VotingPower float64 `json:"voting_power"`

	// Balances (formatted as plain decimal strings)
	Liquid  string `json:"liquid_balance"`
	Stable  string `json:"stable_balance"`
	Vesting string `json:"vesting_balance"`

	// Archive state
	ArchivedOperations int `json:"archived_operations"`
}

// OperationResponse represents one archived history operation
type OperationResponse struct {
	Index     uint64         `json:"index"`
	TrxID     string         `json:"trx_id"`
	Timestamp string         `json:"timestamp"`
	Type      string         `json:"op_type"`
	Body      map[string]any `json:"op,omitempty"`
}

// HistoryResponse represents a paginated slice of an account's archive
type HistoryResponse struct {
	Account    string              `json:"account"`
	Operations []OperationResponse `json:"operations"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
}

// CurationResponse represents trailing curation reward stats in power units
type CurationResponse struct {
	Account  string `json:"account"`
	Last24h  string `json:"24hr"`
	Last7d   string `json:"7d"`
	DailyAvg string `json:"avg"`
}

// QuoteResponse represents one exchange's contribution to a VWAP price
type QuoteResponse struct {
	Exchange string          `json:"exchange"`
	Price    decimal.Decimal `json:"price"`
	Volume   decimal.Decimal `json:"volume"`
}

// PriceResponse represents a volume-weighted composite price
type PriceResponse struct {
	Pair      string          `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	Quotes    []QuoteResponse `json:"quotes"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// GoldResponse represents the USD gold spot price
type GoldResponse struct {
	PriceOz   decimal.Decimal `json:"price_oz"`
	PriceMg   decimal.Decimal `json:"price_mg"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

package dto

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BacktestRequest selects a candle file and the model parameters for one backtest run.
type BacktestRequest struct {
	File        string `json:"file" validate:"required"`
	Symbol      string `json:"symbol"`
	Kind        string `json:"kind" validate:"omitempty,oneof=sma ema macd"`
	AggPeriod   string `json:"agg_period" validate:"omitempty,oneof=5m 15m 1h 1d"`
	ShortWindow int    `json:"short_window" validate:"min=1"`
	LongWindow  int    `json:"long_window" validate:"gtfield=ShortWindow"`
	StartCash   string `json:"start_cash" validate:"omitempty,numeric"`
	FeeRate     string `json:"fee_rate" validate:"omitempty,numeric"`
}

// CacheKey identifies a request for result caching. File contents are keyed separately
// by the candle repository.
func (r BacktestRequest) CacheKey() string {
	return fmt.Sprintf("backtest:%s:%s:%s:%s:%d:%d:%s:%s",
		r.File, r.Symbol, r.Kind, r.AggPeriod, r.ShortWindow, r.LongWindow, r.StartCash, r.FeeRate)
}

type BacktestResult struct {
	Symbol      string       `json:"symbol"`
	Kind        string       `json:"kind"`
	AggPeriod   string       `json:"agg_period"`
	ShortWindow int          `json:"short_window"`
	LongWindow  int          `json:"long_window"`
	Candles     int          `json:"candles"`
	Report      ReportResult `json:"report"`
	Trades      []TradeLog   `json:"trades"`
}

type ReportResult struct {
	StartPrice   decimal.Decimal `json:"start"`
	EndPrice     decimal.Decimal `json:"end"`
	PriceChange  decimal.Decimal `json:"price_chg"`
	NumTrades    int             `json:"num_trades"`
	StartBalance decimal.Decimal `json:"start_bal"`
	EndBalance   decimal.Decimal `json:"end_bal"`
	Gain         decimal.Decimal `json:"gain"`
	Growth       decimal.Decimal `json:"growth"`
}

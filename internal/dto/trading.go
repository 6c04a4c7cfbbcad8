package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeLog struct {
	ID     string          `json:"id"`
	Time   time.Time       `json:"time"`
	Symbol string          `json:"symbol"`
	Side   string          `json:"side"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Fee    decimal.Decimal `json:"fee"`
}

// LiveStatus is a point-in-time view of the live trader.
type LiveStatus struct {
	SessionID    string          `json:"session_id"`
	Symbol       string          `json:"symbol"`
	Kind         string          `json:"kind"`
	AggPeriod    string          `json:"agg_period"`
	Running      bool            `json:"running"`
	StartedAt    time.Time       `json:"started_at"`
	Candles      int             `json:"candles"`
	Signals      int             `json:"signals"`
	NumTrades    int             `json:"num_trades"`
	Cash         decimal.Decimal `json:"cash"`
	Shares       decimal.Decimal `json:"shares"`
	LastPrice    decimal.Decimal `json:"last_price"`
	AccountValue decimal.Decimal `json:"account_value"`
	LastSignal   *SignalLog      `json:"last_signal,omitempty"`
}

type SignalLog struct {
	Time  time.Time       `json:"time"`
	Kind  string          `json:"kind"`
	Price decimal.Decimal `json:"price"`
}

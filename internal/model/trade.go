package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeSide int

const (
	TradeSideSell TradeSide = -1
	TradeSideBuy  TradeSide = 1
)

func (s TradeSide) String() string {
	if s == TradeSideBuy {
		return "BUY"
	}
	return "SELL"
}

// Trade is created once per executed order and never modified.
type Trade struct {
	ID     uuid.UUID       `json:"id"`
	Time   time.Time       `json:"time"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Side   TradeSide       `json:"side"`
	Fee    decimal.Decimal `json:"fee"`
}

// TradeHistory is an append-only, ordered list of trades.
type TradeHistory struct {
	trades []Trade
}

func (h *TradeHistory) Add(t Trade) {
	h.trades = append(h.trades, t)
}

func (h *TradeHistory) Len() int {
	return len(h.trades)
}

// Trades returns a copy so callers cannot rewrite history.
func (h *TradeHistory) Trades() []Trade {
	out := make([]Trade, len(h.trades))
	copy(out, h.trades)
	return out
}

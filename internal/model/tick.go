package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Tick is a single executed trade print from a market-data feed.
type Tick struct {
	Time    time.Time       `json:"time"`
	Symbol  string          `json:"symbol"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Side    string          `json:"side"`
	BestBid decimal.Decimal `json:"best_bid"`
	BestAsk decimal.Decimal `json:"best_ask"`
}

func (t Tick) String() string {
	return fmt.Sprintf("%s: %s %s (%s units)", t.Time.Format(time.RFC3339Nano), t.Symbol, t.Price, t.Size)
}

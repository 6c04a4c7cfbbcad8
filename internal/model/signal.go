package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SignalKind int

const (
	SignalSell SignalKind = -1
	SignalBuy  SignalKind = 1
)

func (k SignalKind) String() string {
	switch k {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	}
	return fmt.Sprintf("SignalKind(%d)", int(k))
}

// SignalEvent is emitted only when a crossover is detected.
type SignalEvent struct {
	Time   time.Time       `json:"time"`
	Symbol string          `json:"symbol"`
	Kind   SignalKind      `json:"kind"`
	Price  decimal.Decimal `json:"price"`
}

func (e SignalEvent) String() string {
	return fmt.Sprintf("%s %s @ %s (%s)", e.Kind, e.Symbol, e.Price, e.Time.Format(time.RFC3339))
}

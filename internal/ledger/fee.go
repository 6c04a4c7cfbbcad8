package ledger

import (
	"golang-crossover/internal/model"

	"github.com/shopspring/decimal"
)

// FeeModel computes the execution cost of a trade. Implementations must be stateless.
type FeeModel interface {
	CalculateFee(symbol string, amount, price decimal.Decimal, side model.TradeSide) decimal.Decimal
}

// DefaultBrokerageRate is the taker fee charged by the reference brokerage (0.5%).
var DefaultBrokerageRate = decimal.RequireFromString("0.005")

// PercentageFee charges Rate of the trade notional.
type PercentageFee struct {
	Rate decimal.Decimal
}

func NewBrokerageFee() PercentageFee {
	return PercentageFee{Rate: DefaultBrokerageRate}
}

func (f PercentageFee) CalculateFee(_ string, amount, price decimal.Decimal, _ model.TradeSide) decimal.Decimal {
	return amount.Mul(price).Mul(f.Rate)
}

// FixedFee charges the same amount for every trade.
type FixedFee struct {
	Amount decimal.Decimal
}

func (f FixedFee) CalculateFee(string, decimal.Decimal, decimal.Decimal, model.TradeSide) decimal.Decimal {
	return f.Amount
}

package backtest

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var reportHeader = []string{"start", "end", "price_chg", "num_trades", "start_bal", "end_bal", "gain", "growth"}

// ReportHeader returns the report field names in output order. Sweep tooling depends on it.
func ReportHeader() []string {
	return append([]string(nil), reportHeader...)
}

type Report struct {
	StartPrice   decimal.Decimal `json:"start"`
	EndPrice     decimal.Decimal `json:"end"`
	PriceChange  decimal.Decimal `json:"price_chg"`
	NumTrades    int             `json:"num_trades"`
	StartBalance decimal.Decimal `json:"start_bal"`
	EndBalance   decimal.Decimal `json:"end_bal"`
	Gain         decimal.Decimal `json:"gain"`
	Growth       decimal.Decimal `json:"growth"`
}

// Row renders the values in ReportHeader order.
func (r Report) Row() []string {
	return []string{
		r.StartPrice.String(),
		r.EndPrice.String(),
		r.PriceChange.String(),
		strconv.Itoa(r.NumTrades),
		r.StartBalance.String(),
		r.EndBalance.String(),
		r.Gain.String(),
		r.Growth.String(),
	}
}

// String renders one "name: value" line per field.
func (r Report) String() string {
	row := r.Row()
	lines := make([]string, len(reportHeader))
	for i, name := range reportHeader {
		lines[i] = name + ": " + row[i]
	}
	return strings.Join(lines, "\n")
}

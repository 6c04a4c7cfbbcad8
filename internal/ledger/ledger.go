// Package ledger holds the audited balance stores and the trading account built on them.
package ledger

import (
	"fmt"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/precision"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionAdd    Direction = "add"
	DirectionRemove Direction = "remove"
)

// History is one immutable audit record written by every ledger mutation.
type History struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Delta     decimal.Decimal `json:"delta"`
	Direction Direction       `json:"direction"`
	Balance   decimal.Decimal `json:"balance"`
}

// Ledger is a named balance store (symbol -> non-negative quantity) with an append-only history.
// It is not safe for concurrent mutation.
type Ledger struct {
	name     string
	prec     precision.Context
	holdings map[string]decimal.Decimal
	history  []History
	now      func() time.Time
}

func NewLedger(name string, prec precision.Context) *Ledger {
	return &Ledger{
		name:     name,
		prec:     prec,
		holdings: make(map[string]decimal.Decimal),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) Name() string {
	return l.name
}

// Balance returns the quantity held for symbol and whether the symbol was ever added.
func (l *Ledger) Balance(symbol string) (decimal.Decimal, bool) {
	bal, ok := l.holdings[symbol]
	return bal, ok
}

// Holdings returns a snapshot of all balances.
func (l *Ledger) Holdings() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.holdings))
	for k, v := range l.holdings {
		out[k] = v
	}
	return out
}

// History returns a copy of the audit trail, oldest first.
func (l *Ledger) History() []History {
	out := make([]History, len(l.history))
	copy(out, l.history)
	return out
}

func (l *Ledger) Add(symbol string, amount decimal.Decimal) error {
	if err := validateSymbolAmount(symbol, amount); err != nil {
		return err
	}
	current := l.holdings[symbol]
	next := l.prec.Add(current, amount)
	l.commit(symbol, amount, DirectionAdd, next)
	return nil
}

func (l *Ledger) Remove(symbol string, amount decimal.Decimal) error {
	if err := validateSymbolAmount(symbol, amount); err != nil {
		return err
	}
	current, ok := l.holdings[symbol]
	if !ok {
		return fmt.Errorf("%w: can't remove %s %s from %s ledger with no holdings", model.ErrInsufficientBalance, amount, symbol, l.name)
	}
	if amount.GreaterThan(current) {
		return fmt.Errorf("%w: can't remove %s from %s as %s holdings are %s", model.ErrInsufficientBalance, amount, symbol, l.name, current)
	}
	next := l.prec.Sub(current, amount)
	l.commit(symbol, amount, DirectionRemove, next)
	return nil
}

func (l *Ledger) commit(symbol string, delta decimal.Decimal, dir Direction, balance decimal.Decimal) {
	l.holdings[symbol] = balance
	l.history = append(l.history, History{
		Timestamp: l.now(),
		Symbol:    symbol,
		Delta:     delta,
		Direction: dir,
		Balance:   balance,
	})
}

func validateSymbolAmount(symbol string, amount decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol must be non-empty", model.ErrValidation)
	}
	return validateAmount("amount", amount)
}

func validateAmount(name string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s must be non-negative; %s=%s", model.ErrValidation, name, name, amount)
	}
	return nil
}

package backtest

import (
	"context"
	"fmt"

	"golang-crossover/internal/ledger"
	"golang-crossover/internal/model"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/precision"

	"github.com/shopspring/decimal"
)

// DefaultBuyFraction is the share of available cash committed on a BUY signal.
var DefaultBuyFraction = decimal.RequireFromString("0.9")

// SignalExecutor applies signal events to an Account. BUY spends a fixed fraction of
// the available cash; SELL liquidates the whole position. The backtest replay and the
// live trader share it so both follow the same decimal path.
type SignalExecutor struct {
	account     *ledger.Account
	buyFraction decimal.Decimal
	prec        precision.Context
	log         *logger.Logger
}

func NewSignalExecutor(account *ledger.Account, buyFraction decimal.Decimal, prec precision.Context, log *logger.Logger) (*SignalExecutor, error) {
	if !buyFraction.IsPositive() || buyFraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: buy fraction must be in (0, 1]; buy_fraction=%s", model.ErrValidation, buyFraction)
	}
	return &SignalExecutor{
		account:     account,
		buyFraction: buyFraction,
		prec:        prec,
		log:         log,
	}, nil
}

func (e *SignalExecutor) Account() *ledger.Account {
	return e.account
}

// Execute applies event and returns the resulting trade, or nil when the event was a
// no-op (SELL while flat, BUY with no cash).
func (e *SignalExecutor) Execute(ctx context.Context, event model.SignalEvent) (*model.Trade, error) {
	if !event.Price.IsPositive() {
		return nil, fmt.Errorf("%w: signal price must be positive; price=%s", model.ErrValidation, event.Price)
	}

	switch event.Kind {
	case model.SignalBuy:
		cash := e.account.CashBalance()
		shares := e.prec.Div(e.prec.Mul(cash, e.buyFraction), event.Price)
		if !shares.IsPositive() {
			e.log.DebugContext(ctx, "Skipping BUY without cash", logger.StringField("event", event.String()))
			return nil, nil
		}
		trade, err := e.account.BuyShares(event.Symbol, shares, event.Price, ledger.WithTradeTime(event.Time))
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", event, err)
		}
		e.log.DebugContext(ctx, "BUY executed",
			logger.DecimalField("shares", shares),
			logger.DecimalField("price", event.Price),
			logger.DecimalField("cash", e.account.CashBalance()),
		)
		return &trade, nil

	case model.SignalSell:
		shares := e.account.Shares(event.Symbol)
		if !shares.IsPositive() {
			e.log.DebugContext(ctx, "Skipping SELL without position", logger.StringField("event", event.String()))
			return nil, nil
		}
		trade, err := e.account.SellShares(event.Symbol, shares, event.Price, ledger.WithTradeTime(event.Time))
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", event, err)
		}
		e.log.DebugContext(ctx, "SELL executed",
			logger.DecimalField("shares", shares),
			logger.DecimalField("price", event.Price),
			logger.DecimalField("cash", e.account.CashBalance()),
		)
		return &trade, nil
	}
	return nil, fmt.Errorf("%w: unknown signal kind %s", model.ErrValidation, event.Kind)
}

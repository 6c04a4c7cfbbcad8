package ledger

import (
	"fmt"
	"sort"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/precision"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "USD"

	cashLedgerName       = "cash"
	securitiesLedgerName = "securities"
)

// Account composes a cash ledger and a securities ledger with a fee model and a trade log.
// Account does no locking; a single owner must serialize all calls.
type Account struct {
	cash        *Ledger
	securities  *Ledger
	currency    string
	feeModel    FeeModel
	trades      model.TradeHistory
	initialCash decimal.Decimal
	prec        precision.Context
	now         func() time.Time
}

type accountOptions struct {
	currency string
	feeModel FeeModel
	prec     precision.Context
	now      func() time.Time
}

type AccountOption func(*accountOptions)

func WithCurrency(currency string) AccountOption {
	return func(o *accountOptions) { o.currency = currency }
}

func WithFeeModel(fm FeeModel) AccountOption {
	return func(o *accountOptions) { o.feeModel = fm }
}

func WithPrecision(prec precision.Context) AccountOption {
	return func(o *accountOptions) { o.prec = prec }
}

func WithClock(now func() time.Time) AccountOption {
	return func(o *accountOptions) { o.now = now }
}

// NewAccount creates an account seeded with startCash in the default currency.
func NewAccount(startCash decimal.Decimal, opts ...AccountOption) (*Account, error) {
	o := accountOptions{
		currency: DefaultCurrency,
		prec:     precision.MustNew(precision.DefaultLedgerDigits),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.currency == "" {
		return nil, fmt.Errorf("%w: currency must be non-empty", model.ErrValidation)
	}
	if err := validateAmount("start cash", startCash); err != nil {
		return nil, err
	}

	a := &Account{
		cash:        NewLedger(cashLedgerName, o.prec),
		securities:  NewLedger(securitiesLedgerName, o.prec),
		currency:    o.currency,
		feeModel:    o.feeModel,
		initialCash: o.prec.Round(startCash),
		prec:        o.prec,
		now:         o.now,
	}
	a.cash.now = o.now
	a.securities.now = o.now
	if err := a.cash.Add(a.currency, startCash); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Account) Currency() string {
	return a.currency
}

func (a *Account) InitialCash() decimal.Decimal {
	return a.initialCash
}

func (a *Account) CashLedger() *Ledger {
	return a.cash
}

func (a *Account) SecuritiesLedger() *Ledger {
	return a.securities
}

// CashBalance returns the balance in the default currency.
func (a *Account) CashBalance() decimal.Decimal {
	return a.CashBalanceIn(a.currency)
}

func (a *Account) CashBalanceIn(currency string) decimal.Decimal {
	bal, _ := a.cash.Balance(currency)
	return bal
}

// Shares returns the quantity held for symbol, zero when never held.
func (a *Account) Shares(symbol string) decimal.Decimal {
	bal, _ := a.securities.Balance(symbol)
	return bal
}

func (a *Account) NumTrades() int {
	return a.trades.Len()
}

func (a *Account) Trades() []model.Trade {
	return a.trades.Trades()
}

// AccountValue returns cash plus every held security marked at the supplied price.
func (a *Account) AccountValue(prices map[string]decimal.Decimal) (decimal.Decimal, error) {
	holdings := a.securities.Holdings()
	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	value := a.CashBalance()
	for _, symbol := range symbols {
		qty := holdings[symbol]
		if qty.IsZero() {
			continue
		}
		price, ok := prices[symbol]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: missing price for held security %s", model.ErrValidation, symbol)
		}
		value = a.prec.Add(value, a.prec.Mul(qty, price))
	}
	return value, nil
}

func (a *Account) DepositCash(amount decimal.Decimal, currency ...string) error {
	return a.cash.Add(a.pickCurrency(currency), amount)
}

func (a *Account) WithdrawCash(amount decimal.Decimal, currency ...string) error {
	return a.cash.Remove(a.pickCurrency(currency), amount)
}

func (a *Account) AddShares(symbol string, amount decimal.Decimal) error {
	return a.securities.Add(symbol, amount)
}

func (a *Account) RemoveShares(symbol string, amount decimal.Decimal) error {
	return a.securities.Remove(symbol, amount)
}

type tradeOptions struct {
	fee      *decimal.Decimal
	currency string
	at       time.Time
}

type TradeOption func(*tradeOptions)

// WithFee overrides the fee model for one trade.
func WithFee(fee decimal.Decimal) TradeOption {
	return func(o *tradeOptions) { o.fee = &fee }
}

func WithTradeCurrency(currency string) TradeOption {
	return func(o *tradeOptions) { o.currency = currency }
}

// WithTradeTime stamps the trade with t instead of the account clock (used for replays).
func WithTradeTime(t time.Time) TradeOption {
	return func(o *tradeOptions) { o.at = t }
}

// BuyShares debits amount*price+fee from cash, then credits amount shares.
func (a *Account) BuyShares(symbol string, amount, price decimal.Decimal, opts ...TradeOption) (model.Trade, error) {
	o, fee, err := a.prepareTrade(symbol, amount, price, model.TradeSideBuy, opts)
	if err != nil {
		return model.Trade{}, err
	}
	cost := a.prec.Add(a.prec.Mul(amount, price), fee)

	if err := a.cash.Remove(o.currency, cost); err != nil {
		return model.Trade{}, fmt.Errorf("buy %s %s @ %s: %w", amount, symbol, price, err)
	}
	if err := a.securities.Add(symbol, amount); err != nil {
		return model.Trade{}, fmt.Errorf("buy %s %s @ %s: %w", amount, symbol, price, err)
	}
	return a.record(symbol, amount, price, model.TradeSideBuy, fee, o.at), nil
}

// SellShares debits amount shares, then credits amount*price-fee to cash.
func (a *Account) SellShares(symbol string, amount, price decimal.Decimal, opts ...TradeOption) (model.Trade, error) {
	o, fee, err := a.prepareTrade(symbol, amount, price, model.TradeSideSell, opts)
	if err != nil {
		return model.Trade{}, err
	}
	proceeds := a.prec.Sub(a.prec.Mul(amount, price), fee)
	if proceeds.IsNegative() {
		return model.Trade{}, fmt.Errorf("%w: fee %s exceeds sale proceeds of %s %s @ %s", model.ErrValidation, fee, amount, symbol, price)
	}

	if err := a.securities.Remove(symbol, amount); err != nil {
		return model.Trade{}, fmt.Errorf("sell %s %s @ %s: %w", amount, symbol, price, err)
	}
	if err := a.cash.Add(o.currency, proceeds); err != nil {
		return model.Trade{}, fmt.Errorf("sell %s %s @ %s: %w", amount, symbol, price, err)
	}
	return a.record(symbol, amount, price, model.TradeSideSell, fee, o.at), nil
}

func (a *Account) prepareTrade(symbol string, amount, price decimal.Decimal, side model.TradeSide, opts []TradeOption) (tradeOptions, decimal.Decimal, error) {
	o := tradeOptions{currency: a.currency}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateSymbolAmount(symbol, amount); err != nil {
		return o, decimal.Zero, err
	}
	if err := validateAmount("price", price); err != nil {
		return o, decimal.Zero, err
	}
	if o.currency == "" {
		return o, decimal.Zero, fmt.Errorf("%w: currency must be non-empty", model.ErrValidation)
	}

	fee := decimal.Zero
	switch {
	case o.fee != nil:
		fee = *o.fee
	case a.feeModel != nil:
		fee = a.feeModel.CalculateFee(symbol, amount, price, side)
	}
	if err := validateAmount("fee", fee); err != nil {
		return o, decimal.Zero, err
	}
	return o, a.prec.Round(fee), nil
}

func (a *Account) record(symbol string, amount, price decimal.Decimal, side model.TradeSide, fee decimal.Decimal, at time.Time) model.Trade {
	if at.IsZero() {
		at = a.now()
	}
	t := model.Trade{
		ID:     uuid.New(),
		Time:   at,
		Symbol: symbol,
		Amount: amount,
		Price:  price,
		Side:   side,
		Fee:    fee,
	}
	a.trades.Add(t)
	return t
}

func (a *Account) pickCurrency(currency []string) string {
	if len(currency) > 0 && currency[0] != "" {
		return currency[0]
	}
	return a.currency
}

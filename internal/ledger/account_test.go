package ledger

import (
	"testing"
	"time"

	"golang-crossover/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T, cash string, opts ...AccountOption) *Account {
	t.Helper()
	a, err := NewAccount(dec(cash), opts...)
	require.NoError(t, err)
	return a
}

func TestNewAccount(t *testing.T) {
	a := newTestAccount(t, "100.00")

	assert.Equal(t, DefaultCurrency, a.Currency())
	assertDecimal(t, "100", a.CashBalance())
	assertDecimal(t, "100", a.InitialCash())
	assert.Equal(t, 0, a.NumTrades())

	_, err := NewAccount(dec("-1"))
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = NewAccount(dec("1"), WithCurrency(""))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAccount_BuyThenSell(t *testing.T) {
	a := newTestAccount(t, "100.00")

	_, err := a.BuyShares("LTC-USD", dec("5"), dec("2"))
	require.NoError(t, err)
	assertDecimal(t, "5", a.Shares("LTC-USD"))
	assertDecimal(t, "90", a.CashBalance())

	_, err = a.SellShares("LTC-USD", dec("5"), dec("3"))
	require.NoError(t, err)
	assertDecimal(t, "0", a.Shares("LTC-USD"))
	assertDecimal(t, "105", a.CashBalance())

	trades := a.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, model.TradeSideBuy, trades[0].Side)
	assert.Equal(t, model.TradeSideSell, trades[1].Side)
	assert.NotEqual(t, trades[0].ID, trades[1].ID)
}

func TestAccount_FeeRoundTrip(t *testing.T) {
	a := newTestAccount(t, "1000")
	fee := dec("1.5")

	_, err := a.BuyShares("LTC-USD", dec("10"), dec("5"), WithFee(fee))
	require.NoError(t, err)
	assertDecimal(t, "948.5", a.CashBalance())

	_, err = a.SellShares("LTC-USD", dec("10"), dec("5"), WithFee(fee))
	require.NoError(t, err)
	assertDecimal(t, "997", a.CashBalance())
}

func TestAccount_FeeModels(t *testing.T) {
	tests := []struct {
		name     string
		feeModel FeeModel
		opts     []TradeOption
		wantCash string
		wantFee  string
	}{
		{
			name:     "no fee model",
			wantCash: "0",
			wantFee:  "0",
		},
		{
			name:     "brokerage percentage fee",
			feeModel: NewBrokerageFee(),
			wantCash: "-5",
			wantFee:  "5",
		},
		{
			name:     "fixed fee",
			feeModel: FixedFee{Amount: dec("2.99")},
			wantCash: "-2.99",
			wantFee:  "2.99",
		},
		{
			name:     "override wins over model",
			feeModel: FixedFee{Amount: dec("2.99")},
			opts:     []TradeOption{WithFee(dec("0.01"))},
			wantCash: "-0.01",
			wantFee:  "0.01",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAccount(t, "2000", WithFeeModel(tt.feeModel))

			trade, err := a.BuyShares("LTC-USD", dec("10"), dec("100"), tt.opts...)
			require.NoError(t, err)
			assertDecimal(t, tt.wantFee, trade.Fee)

			// 2000 - 1000 notional leaves 1000 before fees
			assertDecimal(t, dec("1000").Add(dec(tt.wantCash)).String(), a.CashBalance())
		})
	}
}

func TestAccount_FailedTradesLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		trade   func(a *Account) error
		wantErr error
	}{
		{
			name: "buy without enough cash",
			trade: func(a *Account) error {
				_, err := a.BuyShares("LTC-USD", dec("60"), dec("2"))
				return err
			},
			wantErr: model.ErrInsufficientBalance,
		},
		{
			name: "buy where fee tips over the balance",
			trade: func(a *Account) error {
				_, err := a.BuyShares("LTC-USD", dec("50"), dec("2"), WithFee(dec("0.01")))
				return err
			},
			wantErr: model.ErrInsufficientBalance,
		},
		{
			name: "sell more than held",
			trade: func(a *Account) error {
				_, err := a.SellShares("LTC-USD", dec("1"), dec("2"))
				return err
			},
			wantErr: model.ErrInsufficientBalance,
		},
		{
			name: "negative amount",
			trade: func(a *Account) error {
				_, err := a.BuyShares("LTC-USD", dec("-1"), dec("2"))
				return err
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "negative price",
			trade: func(a *Account) error {
				_, err := a.SellShares("LTC-USD", dec("1"), dec("-2"))
				return err
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "negative fee",
			trade: func(a *Account) error {
				_, err := a.BuyShares("LTC-USD", dec("1"), dec("2"), WithFee(dec("-1")))
				return err
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "empty symbol",
			trade: func(a *Account) error {
				_, err := a.BuyShares("", dec("1"), dec("2"))
				return err
			},
			wantErr: model.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAccount(t, "100")

			err := tt.trade(a)
			assert.ErrorIs(t, err, tt.wantErr)

			assertDecimal(t, "100", a.CashBalance())
			assert.True(t, a.Shares("LTC-USD").IsZero())
			assert.Equal(t, 0, a.NumTrades())
			assert.Len(t, a.CashLedger().History(), 1)
			assert.Empty(t, a.SecuritiesLedger().History())
		})
	}
}

func TestAccount_SellFeeExceedingProceeds(t *testing.T) {
	a := newTestAccount(t, "100")
	require.NoError(t, a.AddShares("LTC-USD", dec("1")))

	_, err := a.SellShares("LTC-USD", dec("1"), dec("1"), WithFee(dec("2")))
	assert.ErrorIs(t, err, model.ErrValidation)
	assertDecimal(t, "1", a.Shares("LTC-USD"))
	assertDecimal(t, "100", a.CashBalance())
}

func TestAccount_CashAndShareTransfers(t *testing.T) {
	a := newTestAccount(t, "10")

	require.NoError(t, a.DepositCash(dec("5")))
	require.NoError(t, a.WithdrawCash(dec("3")))
	assertDecimal(t, "12", a.CashBalance())

	require.NoError(t, a.DepositCash(dec("7"), "EUR"))
	assertDecimal(t, "7", a.CashBalanceIn("EUR"))
	assertDecimal(t, "12", a.CashBalance())

	assert.ErrorIs(t, a.WithdrawCash(dec("13")), model.ErrInsufficientBalance)

	require.NoError(t, a.AddShares("LTC-USD", dec("2")))
	require.NoError(t, a.RemoveShares("LTC-USD", dec("0.5")))
	assertDecimal(t, "1.5", a.Shares("LTC-USD"))
	assert.ErrorIs(t, a.RemoveShares("LTC-USD", dec("2")), model.ErrInsufficientBalance)

	assert.Equal(t, 0, a.NumTrades())
}

func TestAccount_AccountValue(t *testing.T) {
	a := newTestAccount(t, "100")
	_, err := a.BuyShares("LTC-USD", dec("4"), dec("10"))
	require.NoError(t, err)

	_, err = a.AccountValue(map[string]decimal.Decimal{})
	assert.ErrorIs(t, err, model.ErrValidation)

	value, err := a.AccountValue(map[string]decimal.Decimal{"LTC-USD": dec("12.5")})
	require.NoError(t, err)
	assertDecimal(t, "110", value)

	_, err = a.SellShares("LTC-USD", dec("4"), dec("10"))
	require.NoError(t, err)

	value, err = a.AccountValue(nil)
	require.NoError(t, err)
	assertDecimal(t, "100", value)
}

func TestAccount_TradeTimestamps(t *testing.T) {
	clock := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAccount(t, "100", WithClock(func() time.Time { return clock }))

	signalTime := time.Date(2021, 1, 1, 8, 35, 0, 0, time.UTC)
	first, err := a.BuyShares("LTC-USD", dec("1"), dec("10"), WithTradeTime(signalTime))
	require.NoError(t, err)
	second, err := a.SellShares("LTC-USD", dec("1"), dec("10"))
	require.NoError(t, err)

	assert.Equal(t, signalTime, first.Time)
	assert.Equal(t, clock, second.Time)
	assert.Equal(t, clock, a.CashLedger().History()[0].Timestamp)
}

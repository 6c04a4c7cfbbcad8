package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang-crossover/config"
	"golang-crossover/internal/dto"
	"golang-crossover/internal/model"
	"golang-crossover/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	chats []int64
	err   error
}

func (f *fakeSender) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, what.(string))
	f.chats = append(f.chats, to.(*telebot.Chat).ID)
	return &telebot.Message{}, nil
}

func (f *fakeSender) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestNotifier(perMinute int, sender Sender) *Notifier {
	cfg := &config.TelegramConfig{Enabled: true, BotToken: "token", ChatID: 42, TimeoutDuration: time.Second, MaxMessagePerMinute: perMinute}
	return NewNotifier(cfg, logger.NewNop(), sender)
}

func TestNotifier_Send(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(5, sender)

	require.NoError(t, n.Send(context.Background(), "hello"))
	n.SendAsync(context.Background(), "async")
	n.Wait()

	assert.ElementsMatch(t, []string{"hello", "async"}, sender.Sent())
	assert.Equal(t, []int64{42, 42}, sender.chats)

	sender.err = errors.New("forbidden")
	assert.Error(t, n.Send(context.Background(), "fails"))
}

func TestNotifier_SendRespectsLimit(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(1, sender)

	require.NoError(t, n.Send(context.Background(), "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Send(ctx, "second"), context.DeadlineExceeded)
	assert.Equal(t, []string{"first"}, sender.Sent())
}

func TestNotifier_AlertDropsOverBudget(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(2, sender)

	for i := 0; i < 5; i++ {
		n.Alert("ERROR: boom")
	}
	n.Wait()
	assert.Len(t, sender.Sent(), 2)
}

func TestFormatSignal(t *testing.T) {
	event := model.SignalEvent{
		Time:   time.Date(2021, 1, 1, 8, 55, 0, 0, time.UTC),
		Symbol: "LTC-USD",
		Kind:   model.SignalBuy,
		Price:  decimal.RequireFromString("107.959"),
	}
	trade := &model.Trade{
		ID:     uuid.New(),
		Symbol: "LTC-USD",
		Side:   model.TradeSideBuy,
		Amount: decimal.RequireFromString("83.36"),
		Price:  event.Price,
		Fee:    decimal.Zero,
	}

	assert.Equal(t, "🟢 [LTC-USD] BUY signal\n💰 Price: 107.959\n🧾 BUY 83.36 @ 107.959 (fee 0)\n01 Jan 2021 - 08:55 UTC", FormatSignal(event, trade))

	event.Kind = model.SignalSell
	assert.Equal(t, "🔴 [LTC-USD] SELL signal\n💰 Price: 107.959\n🧾 No trade placed\n01 Jan 2021 - 08:55 UTC", FormatSignal(event, nil))
}

func TestFormatStatus(t *testing.T) {
	status := dto.LiveStatus{
		Symbol:       "LTC-USD",
		Kind:         "SMA",
		AggPeriod:    "5m",
		StartedAt:    time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Candles:      12,
		Signals:      1,
		NumTrades:    1,
		Cash:         decimal.RequireFromString("1000"),
		Shares:       decimal.RequireFromString("8.3"),
		LastPrice:    decimal.RequireFromString("108"),
		AccountValue: decimal.RequireFromString("1896.4"),
	}
	text := FormatStatus(status)
	assert.Contains(t, text, "📊 [LTC-USD] SMA 5m status")
	assert.Contains(t, text, "Candles: 12 | Signals: 1 | Trades: 1")
	assert.Contains(t, text, "Value: 1896.4 @ 108")
	assert.NotContains(t, text, "Last signal")
	assert.Contains(t, text, "Since 01 Jan 2021 - 00:00 UTC")
}

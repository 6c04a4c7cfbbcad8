package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/internal/repository"
	"golang-crossover/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// sequenceTicker replays ticks in order and then keeps returning the last one.
type sequenceTicker struct {
	repository.MarketDataRepository

	mu    sync.Mutex
	ticks []model.Tick
	errAt int
	calls int
}

func (s *sequenceTicker) Ticker(context.Context, string) (model.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == s.errAt {
		return model.Tick{}, errors.New("503 service unavailable")
	}
	i := min(s.calls-1, len(s.ticks)-1)
	return s.ticks[i], nil
}

type recordingTicks struct {
	mu    sync.Mutex
	ticks []model.Tick
}

func (r *recordingTicks) OnTick(_ context.Context, tick model.Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, tick)
	return nil
}

func (r *recordingTicks) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

func TestTickPoller_ForwardsNewTicksOnly(t *testing.T) {
	t0 := time.Date(2021, 1, 1, 10, 0, 0, 0, time.UTC)
	tick := func(offset time.Duration, price int64) model.Tick {
		return model.Tick{Time: t0.Add(offset), Symbol: symbol, Price: decimal.NewFromInt(price)}
	}
	repo := &sequenceTicker{
		ticks: []model.Tick{tick(0, 10), tick(0, 10), tick(time.Second, 11), tick(time.Second, 11), tick(2*time.Second, 12)},
		errAt: 2,
	}
	listener := &recordingTicks{}
	poller := NewTickPoller(symbol, 2*time.Millisecond, repo, listener, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		poller.Run(ctx)
	}()

	assert.Eventually(t, func() bool { return listener.Len() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 3, listener.Len())
	prices := make([]string, 0, 3)
	for _, tk := range listener.ticks {
		prices = append(prices, tk.Price.String())
	}
	assert.Equal(t, []string{"10", "11", "12"}, prices)
}

package strategy

import (
	"fmt"
	"strings"

	"golang-crossover/internal/model"
)

// Kind selects the moving average used by a crossover Model.
type Kind int

const (
	KindSMA Kind = iota + 1
	KindEMA
)

func (k Kind) String() string {
	switch k {
	case KindSMA:
		return "sma"
	case KindEMA:
		return "ema"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) IsValid() bool {
	return k == KindSMA || k == KindEMA
}

// ParseKind accepts "sma", "ema" and "macd" (an alias of ema), case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sma":
		return KindSMA, nil
	case "ema", "macd":
		return KindEMA, nil
	}
	return 0, fmt.Errorf("%w: unknown model kind %q", model.ErrUnsupportedConfiguration, s)
}

// indicatorRow is the per-candle state computed once at append time and never recomputed.
type indicatorRow struct {
	seq      int
	candle   model.Candle
	close    float64
	short    float64
	long     float64
	state    int
	position int
}

// step computes the indicator row for candle given the retained rows (oldest first).
// prev holds at least longWindow-1 rows whenever that many were ever appended.
func (m *Model) step(prev *ring[indicatorRow], seq int, candle model.Candle) indicatorRow {
	r := indicatorRow{
		seq:    seq,
		candle: candle,
		close:  candle.Close.InexactFloat64(),
	}
	switch m.kind {
	case KindEMA:
		r.short = emaStep(prev, r.close, m.shortWindow, func(p indicatorRow) float64 { return p.short })
		r.long = emaStep(prev, r.close, m.longWindow, func(p indicatorRow) float64 { return p.long })
	default:
		r.short = smaStep(prev, r.close, m.shortWindow)
		r.long = smaStep(prev, r.close, m.longWindow)
	}
	if r.short > r.long {
		r.state = 1
	}

	if seq > 0 && seq >= m.longWindow-1 && prev.Len() > 0 {
		r.position = r.state - prev.At(prev.Len()-1).state
	}
	return r
}

// smaStep averages price with up to window-1 retained closes, summed oldest first.
func smaStep(prev *ring[indicatorRow], price float64, window int) float64 {
	n := window - 1
	if n > prev.Len() {
		n = prev.Len()
	}
	sum := 0.0
	for i := prev.Len() - n; i < prev.Len(); i++ {
		sum += prev.At(i).close
	}
	sum += price
	return sum / float64(n+1)
}

func emaStep(prev *ring[indicatorRow], price float64, span int, value func(indicatorRow) float64) float64 {
	if prev.Len() == 0 {
		return price
	}
	alpha := 2.0 / (float64(span) + 1.0)
	return price*alpha + value(prev.At(prev.Len()-1))*(1.0-alpha)
}

package backtest

import (
	"fmt"

	"golang-crossover/internal/model"
)

// Resample merges candles into buckets of period aligned to UTC truncation: open is the
// first open, close the last close, high the max, low the min and volume the sum.
// Buckets without input candles are skipped. Input must be in increasing time order.
func Resample(candles []model.Candle, period model.AggPeriod) ([]model.Candle, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: aggregation period %s", model.ErrUnsupportedConfiguration, period)
	}
	if err := model.CheckOrdered(candles); err != nil {
		return nil, err
	}

	d := period.Duration()
	var out []model.Candle
	for _, c := range candles {
		bucket := c.Time.UTC().Truncate(d)
		if n := len(out); n > 0 && out[n-1].Time.Equal(bucket) {
			last := &out[n-1]
			if c.High.GreaterThan(last.High) {
				last.High = c.High
			}
			if c.Low.LessThan(last.Low) {
				last.Low = c.Low
			}
			last.Close = c.Close
			last.Volume = last.Volume.Add(c.Volume)
			continue
		}
		out = append(out, model.Candle{
			Symbol:       c.Symbol,
			Time:         bucket,
			High:         c.High,
			Low:          c.Low,
			Open:         c.Open,
			Close:        c.Close,
			Volume:       c.Volume,
			DurationSecs: period.Seconds(),
		})
	}
	return out, nil
}

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AggPeriod is a candle aggregation period expressed in minutes.
type AggPeriod int

const (
	AggPeriodOneMinute      AggPeriod = 1
	AggPeriodFiveMinutes    AggPeriod = 5
	AggPeriodFifteenMinutes AggPeriod = 15
	AggPeriodOneHour        AggPeriod = 60
	AggPeriodOneDay         AggPeriod = 1440
)

var aggPeriodNames = map[AggPeriod]string{
	AggPeriodOneMinute:      "1m",
	AggPeriodFiveMinutes:    "5m",
	AggPeriodFifteenMinutes: "15m",
	AggPeriodOneHour:        "1h",
	AggPeriodOneDay:         "1d",
}

func (p AggPeriod) IsValid() bool {
	_, ok := aggPeriodNames[p]
	return ok
}

func (p AggPeriod) Duration() time.Duration {
	return time.Duration(p) * time.Minute
}

func (p AggPeriod) Seconds() int {
	return int(p) * 60
}

func (p AggPeriod) String() string {
	if name, ok := aggPeriodNames[p]; ok {
		return name
	}
	return fmt.Sprintf("%dm", int(p))
}

// ParseAggPeriod accepts the short names ("5m", "1h", "1d") or a plain number of minutes.
func ParseAggPeriod(s string) (AggPeriod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range aggPeriodNames {
		if s == name {
			return p, nil
		}
	}
	if minutes, err := strconv.Atoi(s); err == nil && AggPeriod(minutes).IsValid() {
		return AggPeriod(minutes), nil
	}
	return 0, fmt.Errorf("%w: unsupported aggregation period %q", ErrUnsupportedConfiguration, s)
}

// Candle is one OHLC record for a symbol over a fixed duration. Time is the start of the period.
type Candle struct {
	Symbol       string          `json:"symbol"`
	Time         time.Time       `json:"time"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Open         decimal.Decimal `json:"open"`
	Close        decimal.Decimal `json:"close"`
	Volume       decimal.Decimal `json:"volume"`
	DurationSecs int             `json:"duration_secs"`
}

func (c Candle) String() string {
	return fmt.Sprintf("%s %s o=%s h=%s l=%s c=%s v=%s (%ds)",
		c.Symbol, c.Time.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume, c.DurationSecs)
}

// Duration returns the candle duration as a time.Duration.
func (c Candle) Duration() time.Duration {
	return time.Duration(c.DurationSecs) * time.Second
}

// CheckOrdered returns ErrOrdering unless candle times are strictly increasing.
func CheckOrdered(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return fmt.Errorf("%w: candle %d at %s is not after %s", ErrOrdering, i,
				candles[i].Time.Format(time.RFC3339), candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang-crossover/config"
	"golang-crossover/internal/dto"
	"golang-crossover/internal/model"
	"golang-crossover/pkg/httpclient"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/ratelimit"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// MaxCandlesPerRequest is the largest range the historic-rates endpoint serves per call.
const MaxCandlesPerRequest = 300

var supportedGranularities = map[int]bool{60: true, 300: true, 900: true, 3600: true, 21600: true, 86400: true}

// MarketDataRepository reads OHLC candles from the Coinbase Exchange public API.
type MarketDataRepository interface {
	// GenerateCandle returns the single candle covering [start, end).
	GenerateCandle(ctx context.Context, symbol string, start, end time.Time) (model.Candle, error)
	// HistoricRates returns candles in [start, end), oldest first.
	HistoricRates(ctx context.Context, symbol string, start, end time.Time, period model.AggPeriod) ([]model.Candle, error)
	// Ticker returns the latest trade print with the current best bid and ask.
	Ticker(ctx context.Context, symbol string) (model.Tick, error)
}

type coinbaseRepository struct {
	httpClient httpclient.HTTPClient
	limiters   *ratelimit.LimiterStore
	logger     *logger.Logger
}

func NewCoinbaseRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	return NewCoinbaseRepositoryWithClient(
		httpclient.New(log, cfg.Coinbase.BaseURL, cfg.Coinbase.Timeout, cfg.Coinbase.UserAgent),
		rate.Limit(cfg.Coinbase.MaxRequestPerSecond),
		log,
	)
}

func NewCoinbaseRepositoryWithClient(client httpclient.HTTPClient, limit rate.Limit, log *logger.Logger) MarketDataRepository {
	return &coinbaseRepository{
		httpClient: client,
		limiters:   ratelimit.NewLimiterStore(limit, 1),
		logger:     log,
	}
}

func (r *coinbaseRepository) GenerateCandle(ctx context.Context, symbol string, start, end time.Time) (model.Candle, error) {
	granularity := int(end.Sub(start) / time.Second)
	if !supportedGranularities[granularity] {
		return model.Candle{}, fmt.Errorf("%w: granularity %ds", model.ErrUnsupportedConfiguration, granularity)
	}

	// start == end asks for exactly one bucket
	candles, err := r.fetch(ctx, symbol, start, start, granularity)
	if err != nil {
		return model.Candle{}, err
	}
	if len(candles) == 0 {
		return model.Candle{}, fmt.Errorf("%w: %s [%s, %s)", model.ErrNoData, symbol,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	c := candles[0]
	if !c.Time.Equal(start.UTC()) {
		r.logger.WarnContext(ctx, "Coinbase returned a candle for a different period",
			logger.StringField("symbol", symbol),
			logger.TimeField("requested", start),
			logger.TimeField("returned", c.Time),
		)
	}
	return c, nil
}

func (r *coinbaseRepository) HistoricRates(ctx context.Context, symbol string, start, end time.Time, period model.AggPeriod) ([]model.Candle, error) {
	if !period.IsValid() || !supportedGranularities[period.Seconds()] {
		return nil, fmt.Errorf("%w: period %s", model.ErrUnsupportedConfiguration, period)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end %s must be after start %s", model.ErrValidation,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	step := period.Duration() * MaxCandlesPerRequest
	seen := make(map[int64]bool)
	var out []model.Candle
	for chunkStart := start; chunkStart.Before(end); chunkStart = chunkStart.Add(step) {
		chunkEnd := chunkStart.Add(step)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		candles, err := r.fetch(ctx, symbol, chunkStart, chunkEnd, period.Seconds())
		if err != nil {
			return nil, err
		}
		for _, c := range candles {
			if c.Time.Before(start) || !c.Time.Before(end) || seen[c.Time.Unix()] {
				continue
			}
			seen[c.Time.Unix()] = true
			out = append(out, c)
		}
		r.logger.DebugContext(ctx, "Fetched historic rates chunk",
			logger.StringField("symbol", symbol),
			logger.TimeField("start", chunkStart),
			logger.IntField("candles", len(candles)),
		)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (r *coinbaseRepository) Ticker(ctx context.Context, symbol string) (model.Tick, error) {
	if err := r.limiters.GetLimiter(symbol).Wait(ctx); err != nil {
		return model.Tick{}, err
	}

	var ticker dto.CoinbaseTicker
	resp, err := r.httpClient.Get(ctx, fmt.Sprintf("/products/%s/ticker", symbol), nil, nil, &ticker)
	if err != nil {
		return model.Tick{}, fmt.Errorf("failed to fetch ticker from coinbase: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Coinbase API returned Non-OK status for ticker",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return model.Tick{}, fmt.Errorf("coinbase api returned status: %d", resp.StatusCode)
	}

	tick := model.Tick{Time: ticker.Time.UTC(), Symbol: symbol}
	if tick.Price, err = decimal.NewFromString(ticker.Price); err != nil {
		return model.Tick{}, fmt.Errorf("%w: invalid ticker price %q", model.ErrValidation, ticker.Price)
	}
	// size, bid and ask are informational; a malformed value is left at zero
	tick.Size, _ = decimal.NewFromString(ticker.Size)
	tick.BestBid, _ = decimal.NewFromString(ticker.Bid)
	tick.BestAsk, _ = decimal.NewFromString(ticker.Ask)
	if tick.Time.IsZero() {
		tick.Time = time.Now().UTC()
	}
	return tick, nil
}

// fetch calls the historic-rates endpoint. Rows are [time, low, high, open, close, volume].
func (r *coinbaseRepository) fetch(ctx context.Context, symbol string, start, end time.Time, granularity int) ([]model.Candle, error) {
	if err := r.limiters.GetLimiter(symbol).Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/products/%s/candles", symbol)
	queryParams := map[string]string{
		"start":       start.UTC().Format(time.RFC3339),
		"end":         end.UTC().Format(time.RFC3339),
		"granularity": strconv.Itoa(granularity),
	}

	var rows [][]json.Number
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles from coinbase: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Coinbase API returned Non-OK status for candles",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("coinbase api returned status: %d", resp.StatusCode)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := decodeRateRow(symbol, granularity, row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

func decodeRateRow(symbol string, granularity int, row []json.Number) (model.Candle, error) {
	if len(row) < 6 {
		return model.Candle{}, fmt.Errorf("%w: historic rate row has %d fields", model.ErrValidation, len(row))
	}
	ts, err := row[0].Int64()
	if err != nil {
		return model.Candle{}, fmt.Errorf("%w: invalid timestamp %q", model.ErrValidation, row[0])
	}
	values := make([]decimal.Decimal, 5)
	for i := range values {
		if values[i], err = decimal.NewFromString(row[i+1].String()); err != nil {
			return model.Candle{}, fmt.Errorf("%w: invalid value %q", model.ErrValidation, row[i+1])
		}
	}
	return model.Candle{
		Symbol:       symbol,
		Time:         time.Unix(ts, 0).UTC(),
		Low:          values[0],
		High:         values[1],
		Open:         values[2],
		Close:        values[3],
		Volume:       values[4],
		DurationSecs: granularity,
	}, nil
}

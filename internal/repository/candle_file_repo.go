package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/cache"
	"golang-crossover/pkg/logger"

	"github.com/shopspring/decimal"
)

// CandleFields is the column order of the historical candle file format.
var CandleFields = []string{"symbol", "time", "high", "low", "open", "close", "volume", "duration_secs"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

type CandleFileRepository interface {
	Read(ctx context.Context, path string) ([]model.Candle, error)
	Write(ctx context.Context, path string, candles []model.Candle) error
}

type candleFileRepository struct {
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewCandleFileRepository reads and writes candle CSV files. Parsed files are cached
// by path and modification time when c is non-nil.
func NewCandleFileRepository(c cache.Cache, cacheTTL time.Duration, log *logger.Logger) CandleFileRepository {
	return &candleFileRepository{cache: c, cacheTTL: cacheTTL, log: log}
}

func (r *candleFileRepository) Read(ctx context.Context, path string) ([]model.Candle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat candle file: %w", err)
	}
	key := fmt.Sprintf("candles:%s:%d:%d", path, info.Size(), info.ModTime().UnixNano())
	if candles, ok := cache.GetFromCache[[]model.Candle](r.cache, key); ok {
		r.log.DebugContext(ctx, "Candle file served from cache", logger.StringField("path", path))
		return cloneCandles(candles), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candle file: %w", err)
	}
	defer f.Close()

	candles, err := DecodeCandles(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.log.InfoContext(ctx, "Candle file loaded",
		logger.StringField("path", path),
		logger.IntField("candles", len(candles)),
	)
	if r.cache != nil {
		r.cache.Set(key, cloneCandles(candles), r.cacheTTL)
	}
	return candles, nil
}

func (r *candleFileRepository) Write(ctx context.Context, path string, candles []model.Candle) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create candle file: %w", err)
	}
	if err := EncodeCandles(f, candles); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close candle file: %w", err)
	}
	r.log.InfoContext(ctx, "Candle file written",
		logger.StringField("path", path),
		logger.IntField("candles", len(candles)),
	)
	return nil
}

// DecodeCandles parses the historical candle CSV format. Columns are matched by
// header name; rows must be in strictly increasing time order.
func DecodeCandles(r io.Reader) ([]model.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty candle file", model.ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range CandleFields {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", model.ErrValidation, name)
		}
	}

	var candles []model.Candle
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c, err := decodeRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	if err := model.CheckOrdered(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func decodeRecord(record []string, index map[string]int) (model.Candle, error) {
	field := func(name string) (string, error) {
		i := index[name]
		if i >= len(record) {
			return "", fmt.Errorf("%w: missing value for %s", model.ErrValidation, name)
		}
		return strings.TrimSpace(record[i]), nil
	}

	var (
		c   model.Candle
		err error
		raw string
	)
	if c.Symbol, err = field("symbol"); err != nil {
		return c, err
	}
	if raw, err = field("time"); err != nil {
		return c, err
	}
	if c.Time, err = parseTime(raw); err != nil {
		return c, err
	}

	decimals := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"high", &c.High},
		{"low", &c.Low},
		{"open", &c.Open},
		{"close", &c.Close},
		{"volume", &c.Volume},
	}
	for _, d := range decimals {
		if raw, err = field(d.name); err != nil {
			return c, err
		}
		if *d.dst, err = decimal.NewFromString(raw); err != nil {
			return c, fmt.Errorf("%w: invalid %s %q", model.ErrValidation, d.name, raw)
		}
	}

	if raw, err = field("duration_secs"); err != nil {
		return c, err
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return c, fmt.Errorf("%w: invalid duration_secs %q", model.ErrValidation, raw)
	}
	c.DurationSecs = int(secs)
	return c, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid time %q", model.ErrValidation, raw)
}

// EncodeCandles writes candles in the historical candle CSV format with one header row.
func EncodeCandles(w io.Writer, candles []model.Candle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CandleFields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range candles {
		record := []string{
			c.Symbol,
			c.Time.UTC().Format(time.RFC3339),
			c.High.String(),
			c.Low.String(),
			c.Open.String(),
			c.Close.String(),
			c.Volume.String(),
			strconv.Itoa(c.DurationSecs),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write candle %s: %w", c.Time, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func cloneCandles(candles []model.Candle) []model.Candle {
	out := make([]model.Candle, len(candles))
	copy(out, candles)
	return out
}

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang-crossover/internal/dto"
	"golang-crossover/internal/model"
	"golang-crossover/internal/service"
	"golang-crossover/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBacktestService struct {
	mock.Mock
}

func (m *mockBacktestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*dto.BacktestResult)
	return result, args.Error(1)
}

func (m *mockBacktestService) ReplayBacktest(ctx context.Context, req dto.BacktestRequest, delay time.Duration) (*dto.BacktestResult, error) {
	args := m.Called(ctx, req, delay)
	result, _ := args.Get(0).(*dto.BacktestResult)
	return result, args.Error(1)
}

type mockLiveTrader struct {
	mock.Mock
}

func (m *mockLiveTrader) Start(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockLiveTrader) Stop() { m.Called() }
func (m *mockLiveTrader) Running() bool { return m.Called().Bool(0) }

func (m *mockLiveTrader) Status() (dto.LiveStatus, error) {
	args := m.Called()
	return args.Get(0).(dto.LiveStatus), args.Error(1)
}

func (m *mockLiveTrader) Trades() ([]dto.TradeLog, error) {
	args := m.Called()
	trades, _ := args.Get(0).([]dto.TradeLog)
	return trades, args.Error(1)
}

func newTestServer(backtests *mockBacktestService, live *mockLiveTrader) *echo.Echo {
	e := echo.New()
	svc := &service.Service{BacktestService: backtests, LiveTrader: live}
	NewHttpAPIHandler(context.Background(), e, goValidator.New(), svc, logger.NewNop()).SetupRoutes()
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRunBacktest(t *testing.T) {
	backtests := &mockBacktestService{}
	want := dto.BacktestRequest{File: "testdata/ltc.csv", Kind: "sma", AggPeriod: "1h", ShortWindow: 3, LongWindow: 8}
	backtests.On("RunBacktest", mock.Anything, want).Return(&dto.BacktestResult{
		Symbol: "LTC-USD",
		Report: dto.ReportResult{NumTrades: 4, EndBalance: decimal.RequireFromString("10250.5")},
	}, nil).Once()
	e := newTestServer(backtests, &mockLiveTrader{})

	rec := do(e, http.MethodPost, "/api/backtest",
		`{"file":"testdata/ltc.csv","kind":"sma","agg_period":"1h","short_window":3,"long_window":8}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	report := data["report"].(map[string]interface{})
	assert.Equal(t, "LTC-USD", data["symbol"])
	assert.Equal(t, float64(4), report["num_trades"])
	assert.Equal(t, "10250.5", report["end_bal"])
	backtests.AssertExpectations(t)
}

func TestRunBacktest_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"file":`},
		{name: "missing file", body: `{"short_window":3,"long_window":8}`},
		{name: "long window not above short", body: `{"file":"a.csv","short_window":8,"long_window":8}`},
		{name: "unsupported period", body: `{"file":"a.csv","agg_period":"1m","short_window":3,"long_window":8}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backtests := &mockBacktestService{}
			e := newTestServer(backtests, &mockLiveTrader{})

			rec := do(e, http.MethodPost, "/api/backtest", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			backtests.AssertNotCalled(t, "RunBacktest", mock.Anything, mock.Anything)
		})
	}
}

func TestRunBacktest_ServiceErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("%w: bad symbol", model.ErrValidation), want: http.StatusBadRequest},
		{err: fmt.Errorf("%w: period", model.ErrUnsupportedConfiguration), want: http.StatusBadRequest},
		{err: fmt.Errorf("%w: empty file", model.ErrNoData), want: http.StatusNotFound},
		{err: fmt.Errorf("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			backtests := &mockBacktestService{}
			backtests.On("RunBacktest", mock.Anything, mock.Anything).Return(nil, tt.err)
			e := newTestServer(backtests, &mockLiveTrader{})

			rec := do(e, http.MethodPost, "/api/backtest", `{"file":"a.csv","short_window":3,"long_window":8}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.err.Error(), decodeBody(t, rec)["message"])
		})
	}
}

func TestLiveEndpoints(t *testing.T) {
	live := &mockLiveTrader{}
	live.On("Status").Return(dto.LiveStatus{Symbol: "LTC-USD", Running: true, Candles: 7}, nil)
	live.On("Trades").Return([]dto.TradeLog{{ID: "t-1", Side: "BUY"}}, nil)
	e := newTestServer(&mockBacktestService{}, live)

	rec := do(e, http.MethodGet, "/api/live/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["running"])
	assert.Equal(t, float64(7), data["candles"])

	rec = do(e, http.MethodGet, "/api/live/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	trades := decodeBody(t, rec)["data"].([]interface{})
	require.Len(t, trades, 1)
	assert.Equal(t, "BUY", trades[0].(map[string]interface{})["side"])
}

func TestLiveEndpoints_NotStarted(t *testing.T) {
	live := &mockLiveTrader{}
	live.On("Status").Return(dto.LiveStatus{}, fmt.Errorf("%w: not started", model.ErrNoData))
	live.On("Trades").Return(nil, fmt.Errorf("%w: not started", model.ErrNoData))
	e := newTestServer(&mockBacktestService{}, live)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/live/status", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/live/trades", "").Code)
}

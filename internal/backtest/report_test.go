package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_Rendering(t *testing.T) {
	r := Report{
		StartPrice:   dec("100"),
		EndPrice:     dec("91.67"),
		PriceChange:  dec("-0.083252"),
		NumTrades:    20,
		StartBalance: dec("10000"),
		EndBalance:   dec("10512.25"),
		Gain:         dec("512.25"),
		Growth:       dec("0.051225"),
	}

	assert.Equal(t, []string{"start", "end", "price_chg", "num_trades", "start_bal", "end_bal", "gain", "growth"}, ReportHeader())
	assert.Equal(t, []string{"100", "91.67", "-0.083252", "20", "10000", "10512.25", "512.25", "0.051225"}, r.Row())
	assert.Equal(t, `start: 100
end: 91.67
price_chg: -0.083252
num_trades: 20
start_bal: 10000
end_bal: 10512.25
gain: 512.25
growth: 0.051225`, r.String())

	header := ReportHeader()
	header[0] = "changed"
	assert.Equal(t, "start", ReportHeader()[0])
}

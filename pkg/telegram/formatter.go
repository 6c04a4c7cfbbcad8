package telegram

import (
	"fmt"
	"strings"

	"golang-crossover/internal/dto"
	"golang-crossover/internal/model"
	"golang-crossover/pkg/utils"
)

// FormatSignal renders a crossover signal and, when one was placed, the resulting trade.
func FormatSignal(event model.SignalEvent, trade *model.Trade) string {
	var sb strings.Builder

	emoji := "🟢"
	if event.Kind == model.SignalSell {
		emoji = "🔴"
	}
	sb.WriteString(fmt.Sprintf("%s [%s] %s signal\n", emoji, event.Symbol, event.Kind))
	sb.WriteString(fmt.Sprintf("💰 Price: %s\n", event.Price))
	if trade != nil {
		sb.WriteString(fmt.Sprintf("🧾 %s %s @ %s (fee %s)\n", trade.Side, trade.Amount, trade.Price, trade.Fee))
	} else {
		sb.WriteString("🧾 No trade placed\n")
	}
	sb.WriteString(utils.PrettyDate(event.Time))
	return sb.String()
}

// FormatStatus renders a live trader status summary.
func FormatStatus(status dto.LiveStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 [%s] %s %s status\n", status.Symbol, status.Kind, status.AggPeriod))
	sb.WriteString(fmt.Sprintf("Candles: %d | Signals: %d | Trades: %d\n", status.Candles, status.Signals, status.NumTrades))
	sb.WriteString(fmt.Sprintf("Cash: %s\n", status.Cash))
	sb.WriteString(fmt.Sprintf("Shares: %s\n", status.Shares))
	sb.WriteString(fmt.Sprintf("Value: %s @ %s\n", status.AccountValue, status.LastPrice))
	if status.LastSignal != nil {
		sb.WriteString(fmt.Sprintf("Last signal: %s @ %s (%s)\n", status.LastSignal.Kind, status.LastSignal.Price, utils.PrettyDate(status.LastSignal.Time)))
	}
	sb.WriteString(fmt.Sprintf("Since %s", utils.PrettyDate(status.StartedAt)))
	return sb.String()
}

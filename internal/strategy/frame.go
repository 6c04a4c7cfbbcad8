package strategy

import (
	"time"

	"golang-crossover/internal/model"

	"github.com/shopspring/decimal"
)

// FrameRow is one row of the bulk evaluation. Position is +1 for a BUY crossover,
// -1 for a SELL crossover and 0 otherwise.
type FrameRow struct {
	Time     time.Time       `json:"time"`
	Close    decimal.Decimal `json:"close"`
	Short    float64         `json:"short"`
	Long     float64         `json:"long"`
	State    int             `json:"state"`
	Position int             `json:"position"`
}

// SignalFrame evaluates the retained history in bulk. The result is cached until
// the history changes (append, load or eviction).
func (m *Model) SignalFrame() []FrameRow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frame == nil || m.frameVersion != m.version {
		frame := make([]FrameRow, m.rows.Len())
		for i := range frame {
			r := m.rows.At(i)
			frame[i] = FrameRow{
				Time:     r.candle.Time,
				Close:    r.candle.Close,
				Short:    r.short,
				Long:     r.long,
				State:    r.state,
				Position: r.position,
			}
		}
		m.frame = frame
		m.frameVersion = m.version
		m.frameBuilds++
	}

	out := make([]FrameRow, len(m.frame))
	copy(out, m.frame)
	return out
}

// HistoricalSignalEvents returns the crossover rows of SignalFrame paired with their
// close price, in time order.
func (m *Model) HistoricalSignalEvents() []model.SignalEvent {
	var events []model.SignalEvent
	for _, row := range m.SignalFrame() {
		if row.Position == 0 {
			continue
		}
		events = append(events, model.SignalEvent{
			Time:   row.Time,
			Symbol: m.symbol,
			Kind:   signalKind(row.Position),
			Price:  row.Close,
		})
	}
	return events
}

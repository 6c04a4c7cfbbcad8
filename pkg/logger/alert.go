package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const alertFieldKey = "send_alert"

// Alerter receives the rendered text of flagged log entries.
type Alerter interface {
	Alert(text string)
}

// AlertField marks an entry to be forwarded to the configured Alerter.
func AlertField() zap.Field {
	return zap.Bool(alertFieldKey, true)
}

// AlertCore is a zapcore.Core that forwards flagged entries at or above minLevel.
type AlertCore struct {
	core     zapcore.Core
	alerter  Alerter
	minLevel zapcore.Level
}

func NewAlertCore(core zapcore.Core, alerter Alerter, minLevel zapcore.Level) *AlertCore {
	return &AlertCore{core: core, alerter: alerter, minLevel: minLevel}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		core:     a.core.With(fields),
		alerter:  a.alerter,
		minLevel: a.minLevel,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checked.AddCore(entry, a)
	}
	return checked
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= a.minLevel && hasAlertFlag(fields) && a.alerter != nil {
		a.alerter.Alert(FormatAlert(entry, fields))
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func hasAlertFlag(fields []zapcore.Field) bool {
	for _, f := range fields {
		if f.Key == alertFieldKey && f.Type == zapcore.BoolType && f.Integer == 1 {
			return true
		}
	}
	return false
}

// FormatAlert renders an entry as plain text with its fields sorted by key.
func FormatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == alertFieldKey {
			continue
		}
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", entry.Level.CapitalString(), entry.Message)
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %v\n", k, enc.Fields[k])
	}
	sb.WriteString(entry.Time.UTC().Format("2006-01-02 15:04:05"))
	return sb.String()
}

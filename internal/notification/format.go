package notification

import (
	"fmt"
	"html"
	"strings"
	"time"

	"supertrend-bot/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

// MaxErrorLen caps error text included in alerts.
const MaxErrorLen = 100

// Truncate shortens s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TradeEntry announces a newly opened position.
func TradeEntry(symbol string, side model.OrderSide, entry, stop float64, timeframe string, at time.Time) Alert {
	sideUp := strings.ToUpper(string(side))
	var b strings.Builder
	b.WriteString("🚨 <b>NEW TRADE</b>\n\n")
	fmt.Fprintf(&b, "<b>Symbol:</b> %s\n", html.EscapeString(symbol))
	fmt.Fprintf(&b, "<b>Side:</b> %s\n", sideUp)
	fmt.Fprintf(&b, "<b>Entry:</b> %.2f\n", entry)
	fmt.Fprintf(&b, "<b>Stop Loss (ST):</b> %.2f\n", stop)
	fmt.Fprintf(&b, "<b>Timeframe:</b> %s\n", html.EscapeString(timeframe))
	fmt.Fprintf(&b, "<b>Time:</b> %s", at.UTC().Format(timeLayout))

	return Alert{
		Level:   AlertInfo,
		Kind:    KindTradeEntry,
		Title:   "NEW TRADE",
		Message: fmt.Sprintf("%s %s entry=%.2f stop=%.2f tf=%s", symbol, sideUp, entry, stop, timeframe),
		HTML:    b.String(),
	}
}

// ExitPnLPct returns the percentage result of a closed position.
func ExitPnLPct(side model.Side, entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	if side == model.SideShort {
		return (entry - exit) / entry * 100
	}
	return (exit - entry) / entry * 100
}

// TradeExit announces a closed position.
func TradeExit(symbol string, side model.Side, entry, exit float64, reason string) Alert {
	pnl := ExitPnLPct(side, entry, exit)
	sideUp := strings.ToUpper(side.String())
	var b strings.Builder
	b.WriteString("❌ <b>TRADE CLOSED</b>\n\n")
	fmt.Fprintf(&b, "<b>Symbol:</b> %s\n", html.EscapeString(symbol))
	fmt.Fprintf(&b, "<b>Side:</b> %s\n", sideUp)
	fmt.Fprintf(&b, "<b>Entry:</b> %.2f\n", entry)
	fmt.Fprintf(&b, "<b>Exit:</b> %.2f\n", exit)
	fmt.Fprintf(&b, "<b>PnL:</b> %+.2f%%\n", pnl)
	fmt.Fprintf(&b, "<b>Reason:</b> %s", html.EscapeString(reason))

	return Alert{
		Level:   AlertInfo,
		Kind:    KindTradeExit,
		Title:   "TRADE CLOSED",
		Message: fmt.Sprintf("%s %s entry=%.2f exit=%.2f pnl=%+.2f%% reason=%s", symbol, sideUp, entry, exit, pnl, reason),
		HTML:    b.String(),
	}
}

// Info is a plain status message.
func Info(msg string) Alert {
	return Alert{
		Level:   AlertInfo,
		Kind:    KindInfo,
		Title:   "INFO",
		Message: msg,
		HTML:    "ℹ️ " + html.EscapeString(msg),
	}
}

// Warning is a status message that needs attention.
func Warning(msg string) Alert {
	a := Info(msg)
	a.Level = AlertWarning
	a.HTML = "⚠️ " + html.EscapeString(msg)
	return a
}

// Error reports a failure.
func Error(msg string) Alert {
	return Alert{
		Level:   AlertCritical,
		Kind:    KindError,
		Title:   "ERROR",
		Message: msg,
		HTML:    "❌ <b>ERROR</b>\n" + html.EscapeString(msg),
	}
}

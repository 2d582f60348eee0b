// Package markethours tracks candle boundaries for a market that trades
// around the clock. Boundaries are aligned to Unix time in UTC, so a 5m
// candle closes at :00, :05, :10 and so on.
package markethours

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MinWait is the shortest sleep UntilNextBoundary returns.
const MinWait = time.Second

var timeframes = map[string]int64{
	"1m":  60,
	"3m":  180,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
	"2h":  7200,
	"4h":  14400,
	"6h":  21600,
	"1d":  86400,
	"1w":  604800,
}

// TimeframeSeconds returns the candle length for a resolution such as
// "5m" or "1h".
func TimeframeSeconds(tf string) (int64, error) {
	sec, ok := timeframes[strings.ToLower(strings.TrimSpace(tf))]
	if !ok {
		return 0, fmt.Errorf("markethours: unsupported timeframe %q (want one of %s)", tf, strings.Join(Supported(), ", "))
	}
	return sec, nil
}

// ParseTimeframe is TimeframeSeconds as a time.Duration.
func ParseTimeframe(tf string) (time.Duration, error) {
	sec, err := TimeframeSeconds(tf)
	if err != nil {
		return 0, err
	}
	return time.Duration(sec) * time.Second, nil
}

// Supported lists the accepted resolutions, shortest first.
func Supported() []string {
	return []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "1d", "1w"}
}

// NextBoundary returns the next multiple of tf strictly after t.
func NextBoundary(t time.Time, tf time.Duration) time.Time {
	sec := int64(tf / time.Second)
	if sec <= 0 {
		return t
	}
	u := t.Unix()
	return time.Unix((u/sec+1)*sec, 0).UTC()
}

// UntilNextBoundary returns how long to sleep from t to the next boundary,
// never less than MinWait.
func UntilNextBoundary(t time.Time, tf time.Duration) time.Duration {
	d := NextBoundary(t, tf).Sub(t)
	if d < MinWait {
		return MinWait
	}
	return d
}

// CandleOpen returns the open time of the candle containing t.
func CandleOpen(t time.Time, tf time.Duration) time.Time {
	sec := int64(tf / time.Second)
	if sec <= 0 {
		return t
	}
	return time.Unix(t.Unix()/sec*sec, 0).UTC()
}

// IsClosed reports whether the candle opened at openUnix has finished by now.
func IsClosed(openUnix int64, tf time.Duration, now time.Time) bool {
	return openUnix+int64(tf/time.Second) <= now.Unix()
}

// WaitNextBoundary blocks until the next boundary or until ctx is done.
func WaitNextBoundary(ctx context.Context, now time.Time, tf time.Duration) error {
	timer := time.NewTimer(UntilNextBoundary(now, tf))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusString returns a human-readable countdown to the next candle close.
func StatusString(t time.Time, tf time.Duration) string {
	next := NextBoundary(t, tf)
	return fmt.Sprintf("Next %s candle closes %s UTC (%s)", fmtTF(tf), next.Format("15:04:05"), fmtDur(next.Sub(t)))
}

func fmtTF(tf time.Duration) string {
	sec := int64(tf / time.Second)
	for name, s := range timeframes {
		if s == sec {
			return name
		}
	}
	return tf.String()
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

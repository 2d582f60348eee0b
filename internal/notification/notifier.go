// Package notification provides alert delivery to external channels
// (Telegram, webhooks, the log) for trading events.
package notification

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// AlertKind tags what produced an alert.
type AlertKind string

const (
	KindTradeEntry AlertKind = "trade_entry"
	KindTradeExit  AlertKind = "trade_exit"
	KindInfo       AlertKind = "info"
	KindError      AlertKind = "error"
)

// Alert represents a notification to be sent. HTML is the rendered body for
// sinks that support markup; Message is the plain-text equivalent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Kind    AlertKind  `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	HTML    string     `json:"-"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every backend and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async delivers alerts in the background. Send never blocks on the
// network and never returns an error; failures are logged.
type Async struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next. Each delivery is bounded by timeout.
func NewAsync(next Notifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{next: next, timeout: timeout}
}

func (a *Async) Send(ctx context.Context, alert Alert) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		// detached from the caller so shutdown alerts still go out
		sendCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Send(sendCtx, alert); err != nil {
			log.Printf("[notify] delivery failed (%s): %v", alert.Title, err)
		}
	}()
	return nil
}

// Wait blocks until every pending delivery has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Package execution keeps a remote position aligned with the Supertrend
// signal. One Reconciler runs per symbol: at each candle close it fetches
// history, evaluates the signal, reads the position and issues the close
// and open orders the decision tree calls for.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"supertrend-bot/internal/logger"
	"supertrend-bot/internal/markethours"
	"supertrend-bot/internal/metrics"
	"supertrend-bot/internal/model"
	"supertrend-bot/internal/notification"
	"supertrend-bot/internal/strategy"
)

// Publisher receives the live state of every cycle.
type Publisher interface {
	PublishSnapshot(ctx context.Context, symbol string, snap model.Snapshot) error
	PublishSignal(ctx context.Context, symbol string, ev model.SignalEvent) error
	PublishEvent(ctx context.Context, symbol string, ev any) error
}

// OrderRecorder journals acknowledged orders.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, o model.Order, purpose string) error
}

// Checkpointer stores the indicator state after each cycle.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, symbol string, data []byte) error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Deps are the collaborators of a Reconciler. Only Exchange is required.
type Deps struct {
	Exchange    model.Exchange
	Logger      *slog.Logger
	Notifier    notification.Notifier
	Publisher   Publisher
	Journal     OrderRecorder
	Checkpoints Checkpointer
	Metrics     *metrics.Metrics
	Health      *metrics.HealthStatus
	Now         func() time.Time
	Sleep       Sleeper
}

// Decision is what a cycle did.
type Decision string

const (
	DecisionHold       Decision = "hold"
	DecisionForcedExit Decision = "forced_exit"
	DecisionOpenLong   Decision = "open_long"
	DecisionOpenShort  Decision = "open_short"
	DecisionFailed     Decision = "failed"
)

// CycleResult is the outcome of one cycle. It is also the payload
// published on the event channel.
type CycleResult struct {
	Iteration         int64            `json:"iteration"`
	Time              time.Time        `json:"time"`
	Decision          Decision         `json:"decision"`
	Signal            model.SignalType `json:"signal,omitempty"`
	Trend             model.Trend      `json:"trend,omitempty"`
	Price             float64          `json:"price,omitempty"`
	Supertrend        float64          `json:"supertrend,omitempty"`
	Position          model.Side       `json:"position"`
	Size              float64          `json:"size"`
	StopLoss          float64          `json:"stop_loss,omitempty"`
	Candles           int              `json:"candles"`
	Error             string           `json:"error,omitempty"`
	ErrorKind         string           `json:"error_kind,omitempty"`
	ConsecutiveErrors int              `json:"consecutive_errors"`
	Tripped           bool             `json:"tripped"`
	Duration          time.Duration    `json:"duration_ns"`

	err error
}

// Err returns the error that failed the cycle, if any.
func (r CycleResult) Err() error { return r.err }

// Reconciler is the per-symbol control loop. It is not safe for concurrent
// use; Run owns it.
type Reconciler struct {
	cfg   Settings
	deps  Deps
	gen   *strategy.Generator
	log   *slog.Logger
	tf    time.Duration
	tfSec int64

	iteration         int64
	consecutiveErrors int
	tripped           bool
}

// NewReconciler validates cfg and wires the collaborators.
func NewReconciler(cfg Settings, deps Deps) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Exchange == nil {
		return nil, fmt.Errorf("execution: exchange is required")
	}
	tf, err := markethours.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	gen, err := strategy.NewGenerator(cfg.Indicator)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notification.NewLogNotifier()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	return &Reconciler{
		cfg:   cfg,
		deps:  deps,
		gen:   gen,
		log:   deps.Logger.With(slog.String("symbol", cfg.Symbol), slog.String("timeframe", cfg.Timeframe)),
		tf:    tf,
		tfSec: int64(tf / time.Second),
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ConsecutiveErrors returns the current failure streak.
func (r *Reconciler) ConsecutiveErrors() int { return r.consecutiveErrors }

// Tripped reports whether the error ceiling halted the loop.
func (r *Reconciler) Tripped() bool { return r.tripped }

// Generator exposes the signal state, mainly for checkpointing.
func (r *Reconciler) Generator() *strategy.Generator { return r.gen }

// Run waits for each candle close and runs one cycle, until ctx is
// cancelled or the breaker trips. Cancellation returns nil; a trip returns
// ErrBreakerTripped. Either way a final position read and a shutdown alert
// are attempted.
func (r *Reconciler) Run(ctx context.Context) error {
	r.log.Info("reconciler started",
		slog.Float64("size", r.cfg.OrderSize),
		slog.Float64("stop_fallback", r.cfg.StopFallback),
		slog.Int("min_candles", r.cfg.MinCandles),
		slog.Int("max_errors", r.cfg.MaxConsecutiveErrors),
		slog.String("indicator", r.cfg.Indicator.Name()))
	r.notify(ctx, notification.Info(fmt.Sprintf("🚀 Supertrend bot started | %s %s | size %g | %s",
		r.cfg.Symbol, r.cfg.Timeframe, r.cfg.OrderSize, r.cfg.Indicator.Name())))

	var runErr error
	for {
		now := r.deps.Now()
		wait := markethours.UntilNextBoundary(now, r.tf)
		r.log.Debug("waiting for candle close",
			slog.Duration("wait", wait),
			slog.String("status", markethours.StatusString(now, r.tf)))
		if err := r.deps.Sleep(ctx, wait); err != nil {
			r.log.Info("reconciler stopping", slog.String("reason", err.Error()))
			break
		}
		r.RunCycle(ctx)
		if r.tripped {
			runErr = ErrBreakerTripped
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	r.shutdown(runErr)
	return runErr
}

// shutdown runs on a fresh context so it still works after cancellation.
func (r *Reconciler) shutdown(runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	final := "unknown"
	if pos, err := r.currentPosition(ctx); err != nil {
		r.log.Error("final position check failed", slog.String("error", err.Error()))
	} else {
		final = fmt.Sprintf("%s %g", pos.Side, pos.Size)
		r.log.Info("final position", slog.String("position", pos.Side.String()), slog.Float64("size", pos.Size))
	}

	msg := "👋 Bot shutdown complete | final position: " + final
	if runErr != nil {
		msg = "❌ Bot stopped due to repeated errors | final position: " + final
	}
	r.notify(ctx, notification.Info(msg))
}

// RunCycle performs one fetch → evaluate → decide → act pass.
func (r *Reconciler) RunCycle(ctx context.Context) CycleResult {
	r.iteration++
	start := r.deps.Now()
	ctx = logger.WithTraceID(ctx, logger.CycleTraceID(r.cfg.Symbol, r.iteration))
	res := CycleResult{Iteration: r.iteration, Time: start}

	r.logInfo(ctx, "cycle started", slog.Int64("cycle", r.iteration), slog.Int("errors", r.consecutiveErrors))
	r.cycle(ctx, &res)

	if res.err != nil {
		r.consecutiveErrors++
		res.Decision = DecisionFailed
		res.Error = res.err.Error()
		res.ErrorKind = ErrorKind(res.err)
		if m := r.deps.Metrics; m != nil {
			m.ErrorsTotal.WithLabelValues(res.ErrorKind).Inc()
		}
		r.logError(ctx, "cycle failed",
			slog.Int64("cycle", r.iteration),
			slog.String("error", res.Error),
			slog.String("error_kind", res.ErrorKind),
			slog.Int("errors", r.consecutiveErrors))
	} else {
		r.consecutiveErrors = 0
	}

	if r.consecutiveErrors >= r.cfg.MaxConsecutiveErrors {
		r.tripped = true
		r.logError(ctx, "error ceiling reached, halting",
			slog.Int("errors", r.consecutiveErrors),
			slog.Int("max_errors", r.cfg.MaxConsecutiveErrors))
	}

	res.ConsecutiveErrors = r.consecutiveErrors
	res.Tripped = r.tripped
	res.Duration = r.deps.Now().Sub(start)
	r.record(ctx, res)
	return res
}

func (r *Reconciler) cycle(ctx context.Context, res *CycleResult) {
	candles, err := r.closedCandles(ctx)
	res.Candles = len(candles)
	if err != nil {
		res.err = err
		r.notify(ctx, notification.Error("Bot error: "+notification.Truncate(err.Error(), notification.MaxErrorLen)))
		return
	}
	if len(candles) < r.cfg.MinCandles {
		res.err = fmt.Errorf("%w: %d candles (required %d)", ErrInsufficientData, len(candles), r.cfg.MinCandles)
		r.notify(ctx, notification.Warning(fmt.Sprintf("Insufficient data: %d candles", len(candles))))
		return
	}

	eval, err := r.gen.Evaluate(candles)
	if err != nil {
		res.err = fmt.Errorf("evaluate signal: %w", err)
		return
	}
	ev, cur := eval.Event, eval.Current
	if eval.Applied == 0 && ev.IsFlip() {
		// No candle closed since the last cycle: the flip was already acted on.
		r.logInfo(ctx, "stale flip ignored", slog.String("signal", string(ev.Signal)), slog.Int64("candle", cur.Time))
		ev.Signal, ev.Action = model.SignalHold, model.ActionNone
		eval.Event = ev
	}
	res.Signal, res.Trend, res.Price, res.Supertrend = ev.Signal, cur.Trend, cur.Close, cur.SupertrendLine
	r.publishEvaluation(ctx, eval)

	r.logInfo(ctx, "signal evaluated",
		slog.String("signal", string(ev.Signal)),
		slog.String("trend", string(cur.Trend)),
		slog.Float64("price", cur.Close),
		slog.Float64("supertrend", cur.SupertrendLine),
		slog.Int("applied", eval.Applied),
		slog.Bool("reseeded", eval.Reseeded))

	pos, err := r.currentPosition(ctx)
	if err != nil {
		res.err = err
		r.notify(ctx, notification.Error("Bot error: "+notification.Truncate(err.Error(), notification.MaxErrorLen)))
		return
	}
	res.Position, res.Size = pos.Side, pos.Size
	r.logInfo(ctx, "position read", slog.String("position", pos.Side.String()), slog.Float64("size", pos.Size))

	// A position against the newest trend is closed before anything else.
	if forced := forcedExit(pos.Side, cur.Trend); forced {
		res.Decision = DecisionForcedExit
		r.notify(ctx, notification.Info(fmt.Sprintf("🔁 Trend flipped %s → Closing %s",
			upper(string(cur.Trend)), upper(pos.Side.String()))))
		if err := r.closePosition(ctx, pos); err != nil {
			res.err = err
			return
		}
		r.notify(ctx, notification.TradeExit(r.cfg.Symbol, pos.Side, pos.EntryPrice, cur.Close, "Trend flipped"))
		res.Position, res.Size = model.SideNone, 0
		return
	}

	switch {
	case ev.Signal == model.SignalBuy && pos.Side != model.SideLong:
		res.Decision = DecisionOpenLong
		res.err = r.enter(ctx, res, pos, model.SideLong, cur)
	case ev.Signal == model.SignalSell && pos.Side != model.SideShort:
		res.Decision = DecisionOpenShort
		res.err = r.enter(ctx, res, pos, model.SideShort, cur)
	default:
		res.Decision = DecisionHold
		r.logInfo(ctx, "no action", slog.String("signal", string(ev.Signal)), slog.String("position", pos.Side.String()))
		if r.cfg.NotifyHold {
			r.notify(ctx, notification.Info("⏸️ No action — hold on for position"))
		}
	}
}

func upper(s string) string { return strings.ToUpper(s) }

func forcedExit(side model.Side, trend model.Trend) bool {
	return (side == model.SideLong && trend == model.TrendDown) ||
		(side == model.SideShort && trend == model.TrendUp)
}

// enter opens side, closing the opposite position first. A failed stop
// order is reported but does not fail the cycle.
func (r *Reconciler) enter(ctx context.Context, res *CycleResult, pos model.Position, side model.Side, cur model.Snapshot) error {
	label := upper(side.String())
	if !pos.Flat() {
		r.logInfo(ctx, "closing opposite position before entry", slog.String("position", pos.Side.String()))
		if err := r.closePosition(ctx, pos); err != nil {
			return fmt.Errorf("close %s before %s entry: %w", pos.Side, side, err)
		}
		res.Position, res.Size = model.SideNone, 0
		if err := r.deps.Sleep(ctx, r.cfg.SettleDelay); err != nil {
			return err
		}
	}

	order, err := r.deps.Exchange.PlaceMarketOrder(ctx, r.cfg.Symbol, r.cfg.OrderSize, side.OrderSide(), false)
	r.countOrder(side.OrderSide(), model.OrderTypeMarket, err)
	if err != nil {
		r.notify(ctx, notification.Error(fmt.Sprintf("Failed to open %s: %s", label,
			notification.Truncate(err.Error(), notification.MaxErrorLen))))
		return external("open "+side.String(), err)
	}
	r.journal(ctx, order, "entry")
	res.Position, res.Size = side, r.cfg.OrderSize
	r.logInfo(ctx, "position opened", slog.String("position", side.String()), slog.String("order_id", order.ID))

	if err := r.deps.Sleep(ctx, r.cfg.StopDelay); err != nil {
		return err
	}

	stop := strategy.StopLossPrice(side, cur.Close, cur.SupertrendLine, r.cfg.StopFallback)
	res.StopLoss = stop
	stopOrder, err := r.deps.Exchange.PlaceStopOrder(ctx, r.cfg.Symbol, r.cfg.OrderSize, side.CloseSide(), stop)
	r.countOrder(side.CloseSide(), model.OrderTypeStop, err)
	if err != nil {
		r.logWarn(ctx, "stop loss not placed", slog.Float64("stop", stop), slog.String("error", err.Error()))
		r.notify(ctx, notification.Warning(fmt.Sprintf("Failed to set stop loss at %.2f: %s", stop,
			notification.Truncate(err.Error(), notification.MaxErrorLen))))
	} else {
		r.journal(ctx, stopOrder, "stop_loss")
		r.logInfo(ctx, "stop loss placed", slog.Float64("stop", stop), slog.String("order_id", stopOrder.ID))
	}

	r.notify(ctx, notification.TradeEntry(r.cfg.Symbol, side.OrderSide(), cur.Close, stop, r.cfg.Timeframe, r.deps.Now()))
	return nil
}

// closePosition sends a reduce-only market order and waits for the
// position to read back flat.
func (r *Reconciler) closePosition(ctx context.Context, pos model.Position) error {
	if pos.Flat() {
		return nil
	}
	label := upper(pos.Side.String())
	side := pos.Side.CloseSide()
	order, err := r.deps.Exchange.PlaceMarketOrder(ctx, r.cfg.Symbol, pos.Size, side, true)
	r.countOrder(side, model.OrderTypeMarket, err)
	if err != nil {
		r.notify(ctx, notification.Error(fmt.Sprintf("Failed to close %s position: %s", label,
			notification.Truncate(err.Error(), notification.MaxErrorLen))))
		return external("close "+pos.Side.String(), err)
	}
	r.journal(ctx, order, "close")

	if err := r.verifyClosed(ctx); err != nil {
		r.notify(ctx, notification.Warning(fmt.Sprintf("%s position may not be fully closed", label)))
		return err
	}
	r.logInfo(ctx, "position closed", slog.String("position", pos.Side.String()))
	return nil
}

// verifyClosed polls the position a bounded number of times.
func (r *Reconciler) verifyClosed(ctx context.Context) error {
	for attempt := 1; attempt <= r.cfg.VerifyAttempts; attempt++ {
		if err := r.deps.Sleep(ctx, r.cfg.VerifyDelay); err != nil {
			return err
		}
		positions, err := r.deps.Exchange.GetPositions(ctx, r.cfg.Symbol)
		if err != nil {
			r.logWarn(ctx, "verification poll failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			continue
		}
		if allFlat(positions) {
			if m := r.deps.Metrics; m != nil {
				m.VerifyAttempts.Observe(float64(attempt))
			}
			return nil
		}
		r.logWarn(ctx, "position still open", slog.Int("attempt", attempt), slog.Int("max_attempts", r.cfg.VerifyAttempts))
	}
	if m := r.deps.Metrics; m != nil {
		m.VerifyAttempts.Observe(float64(r.cfg.VerifyAttempts + 1))
	}
	return fmt.Errorf("%w after %d attempts", ErrVerificationTimeout, r.cfg.VerifyAttempts)
}

func allFlat(positions []model.Position) bool {
	for _, p := range positions {
		if p.Size != 0 {
			return false
		}
	}
	return true
}

// currentPosition returns the first open position, or a flat one.
func (r *Reconciler) currentPosition(ctx context.Context) (model.Position, error) {
	positions, err := r.deps.Exchange.GetPositions(ctx, r.cfg.Symbol)
	if err != nil {
		return model.Position{}, external("get positions", err)
	}
	for _, p := range positions {
		if !p.Flat() {
			return p, nil
		}
	}
	return model.Position{Symbol: r.cfg.Symbol}, nil
}

// closedCandles fetches the lookback window and drops the candle that is
// still forming.
func (r *Reconciler) closedCandles(ctx context.Context) ([]model.Candle, error) {
	now := r.deps.Now()
	end := now.Unix()
	start := now.Add(-r.cfg.HistoryLookback).Unix()
	candles, err := r.deps.Exchange.FetchCandles(ctx, r.cfg.Symbol, r.cfg.Timeframe, start, end)
	if err != nil {
		return nil, external("fetch candles", err)
	}
	closed := candles[:0:0]
	for _, c := range candles {
		if markethours.IsClosed(c.Time, r.tf, now) {
			closed = append(closed, c)
		}
	}
	return closed, nil
}

func (r *Reconciler) publishEvaluation(ctx context.Context, eval strategy.Evaluation) {
	if m := r.deps.Metrics; m != nil {
		m.SignalsTotal.WithLabelValues(string(eval.Event.Signal)).Inc()
	}
	if p := r.deps.Publisher; p != nil {
		if err := p.PublishSnapshot(ctx, r.cfg.Symbol, eval.Current); err != nil {
			r.logWarn(ctx, "publish snapshot failed", slog.String("error", err.Error()))
		}
		if err := p.PublishSignal(ctx, r.cfg.Symbol, eval.Event); err != nil {
			r.logWarn(ctx, "publish signal failed", slog.String("error", err.Error()))
		}
	}
	if cp := r.deps.Checkpoints; cp != nil {
		data, err := r.gen.MarshalState()
		if err == nil {
			err = cp.SaveCheckpoint(ctx, r.cfg.Symbol, data)
		}
		if err != nil {
			r.logWarn(ctx, "checkpoint failed", slog.String("error", err.Error()))
		}
	}
}

// record pushes the cycle outcome to metrics, health and the publisher.
func (r *Reconciler) record(ctx context.Context, res CycleResult) {
	if m := r.deps.Metrics; m != nil {
		m.CyclesTotal.WithLabelValues(string(res.Decision)).Inc()
		m.ConsecutiveErrors.Set(float64(res.ConsecutiveErrors))
		m.CycleDur.Observe(res.Duration.Seconds())
		m.PositionSize.Set(res.Size)
		switch res.Position {
		case model.SideLong:
			m.PositionSide.Set(1)
		case model.SideShort:
			m.PositionSide.Set(-1)
		default:
			m.PositionSide.Set(0)
		}
		if res.Tripped {
			m.BreakerTripped.Set(1)
		}
	}
	if h := r.deps.Health; h != nil {
		h.RecordCycle(res.err == nil, res.ConsecutiveErrors, res.Position.String(), res.Time)
		if res.Tripped {
			h.SetBreakerTripped(true)
		}
	}
	if p := r.deps.Publisher; p != nil {
		if err := p.PublishEvent(ctx, r.cfg.Symbol, res); err != nil {
			r.logWarn(ctx, "publish event failed", slog.String("error", err.Error()))
		}
	}
	r.logInfo(ctx, "cycle finished",
		slog.Int64("cycle", res.Iteration),
		slog.String("decision", string(res.Decision)),
		slog.String("position", res.Position.String()),
		slog.Int("errors", res.ConsecutiveErrors),
		slog.Duration("took", res.Duration))
}

func (r *Reconciler) countOrder(side model.OrderSide, orderType string, err error) {
	m := r.deps.Metrics
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OrdersTotal.WithLabelValues(string(side), orderType, result).Inc()
}

func (r *Reconciler) journal(ctx context.Context, o *model.Order, purpose string) {
	if r.deps.Journal == nil || o == nil {
		return
	}
	if err := r.deps.Journal.RecordOrder(ctx, *o, purpose); err != nil {
		r.logWarn(ctx, "journal write failed", slog.String("error", err.Error()))
	}
}

// notify never fails the cycle.
func (r *Reconciler) notify(ctx context.Context, a notification.Alert) {
	if err := r.deps.Notifier.Send(ctx, a); err != nil {
		r.log.Warn("notification failed", slog.String("title", a.Title), slog.String("error", err.Error()))
	}
}

func (r *Reconciler) logInfo(ctx context.Context, msg string, attrs ...any) {
	r.log.InfoContext(ctx, msg, append(logger.LogWithTrace(ctx), attrs...)...)
}

func (r *Reconciler) logWarn(ctx context.Context, msg string, attrs ...any) {
	r.log.WarnContext(ctx, msg, append(logger.LogWithTrace(ctx), attrs...)...)
}

func (r *Reconciler) logError(ctx context.Context, msg string, attrs ...any) {
	r.log.ErrorContext(ctx, msg, append(logger.LogWithTrace(ctx), attrs...)...)
}

package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/trogers1052/market-notifier/internal/models"
)

// ErrStopped is returned by Tick once the monitor has been shut down
var ErrStopped = errors.New("monitor stopped")

// PriceSource supplies the latest price of every watched instrument
type PriceSource interface {
	CurrentPrices(ctx context.Context) ([]models.PriceModel, error)
}

// State of the monitor loop
type State int32

// Monitor states
const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Config holds the monitor schedule
type Config struct {
	InitialDelay time.Duration
	Period       time.Duration
}

// TickReport summarizes one detection and dispatch cycle
type TickReport struct {
	ID        string `json:"id"`
	Prices    int    `json:"prices"`
	Deltas    int    `json:"deltas"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// Monitor periodically pulls prices, detects changes and dispatches
// notifications. Ticks never overlap.
type Monitor struct {
	source     PriceSource
	detector   *ChangeDetector
	registry   *Registry
	dispatcher *Dispatcher
	cfg        Config
	metrics    Metrics
	log        zerolog.Logger

	cron *cron.Cron

	tickMu sync.Mutex // serializes ticks, guards detector

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	stopping  atomic.Bool
	state     atomic.Int32
}

// NewMonitor wires a monitor from its collaborators
func NewMonitor(source PriceSource, detector *ChangeDetector, registry *Registry, dispatcher *Dispatcher, cfg Config, metrics Metrics, log zerolog.Logger) *Monitor {
	log = log.With().Str("component", "monitor").Logger()
	cl := cronLogger{log: log}
	return &Monitor{
		source:     source,
		detector:   detector,
		registry:   registry,
		dispatcher: dispatcher,
		cfg:        cfg,
		metrics:    metricsOrNoop(metrics),
		log:        log,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start schedules ticks: the first after InitialDelay, then every Period.
// Starting a stopped or already started monitor does nothing.
func (m *Monitor) Start() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.stopped || m.started {
		return nil
	}
	if m.cfg.Period <= 0 {
		return fmt.Errorf("monitor period must be positive, got %s", m.cfg.Period)
	}

	m.cron.Schedule(&fixedRate{initial: m.cfg.InitialDelay, period: m.cfg.Period}, cron.FuncJob(m.scheduledTick))
	m.cron.Start()
	m.started = true

	m.log.Info().
		Dur("initial_delay", m.cfg.InitialDelay).
		Dur("period", m.cfg.Period).
		Msg("Monitor started")
	return nil
}

// Shutdown stops future ticks and waits for an in-flight tick to finish.
// It is safe to call more than once.
func (m *Monitor) Shutdown() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.stopped {
		return
	}
	m.stopped = true
	m.stopping.Store(true)

	<-m.cron.Stop().Done()

	m.tickMu.Lock()
	m.state.Store(int32(StateStopped))
	m.tickMu.Unlock()

	m.log.Info().Msg("Monitor stopped")
}

// State reports whether the monitor is idle, running a tick, or stopped
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Tick runs one cycle. Manual calls are serialized with scheduled ticks.
// A price source or subscriber lookup failure skips the whole tick without
// touching the detector state.
func (m *Monitor) Tick(ctx context.Context) (TickReport, error) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	report := TickReport{ID: uuid.NewString()}
	if m.stopping.Load() || m.State() == StateStopped {
		return report, ErrStopped
	}
	m.state.Store(int32(StateRunning))
	defer m.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))

	start := time.Now()
	log := m.log.With().Str("tick_id", report.ID).Logger()

	prices, err := m.source.CurrentPrices(ctx)
	if err != nil {
		m.metrics.TickCompleted(TickStatusSkipped, time.Since(start))
		return report, fmt.Errorf("failed to fetch prices: %w", err)
	}
	subscribers, err := m.registry.Subscribers(ctx)
	if err != nil {
		m.metrics.TickCompleted(TickStatusSkipped, time.Since(start))
		return report, err
	}

	snapshot := make(map[string]models.PriceModel, len(prices))
	for _, p := range prices {
		if err := p.Validate(); err != nil {
			log.Warn().Err(err).Str("symbol", p.Symbol).Msg("Ignoring invalid price")
			continue
		}
		snapshot[p.Symbol] = p
		m.metrics.PriceObserved(p.Symbol, p.CurrentPrice)
	}
	report.Prices = len(snapshot)

	deltas := m.detector.Observe(snapshot)
	report.Deltas = len(deltas)

	for _, delta := range deltas {
		m.metrics.DeltaDetected(delta.Symbol)
		sent, failed := m.dispatcher.dispatch(ctx, delta, subscribers)
		report.Delivered += len(sent)
		report.Failed += failed

		log.Debug().
			Str("symbol", delta.Symbol).
			Float64("percent_change", delta.PercentChange).
			Int("delivered", len(sent)).
			Int("failed", failed).
			Msg("Dispatched price delta")
	}

	m.metrics.TickCompleted(TickStatusOK, time.Since(start))
	log.Info().
		Int("prices", report.Prices).
		Int("deltas", report.Deltas).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Msg("Tick completed")
	return report, nil
}

func (m *Monitor) scheduledTick() {
	if _, err := m.Tick(context.Background()); err != nil && !errors.Is(err, ErrStopped) {
		m.log.Warn().Err(err).Msg("Tick skipped")
	}
}

// fixedRate fires once after initial, then every period
type fixedRate struct {
	initial time.Duration
	period  time.Duration
	fired   atomic.Bool
}

func (s *fixedRate) Next(t time.Time) time.Time {
	if s.fired.CompareAndSwap(false, true) {
		return t.Add(s.initial)
	}
	return t.Add(s.period)
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

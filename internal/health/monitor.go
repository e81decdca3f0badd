// Package health tracks liveness of the ledger node with a scheduled probe.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/metrics"
)

// StatusOK is reported by a component that answered its last check.
const StatusOK = "ok"

const statusPending = "pending"

// LedgerStatus is the result of the latest probe.
type LedgerStatus struct {
	State     string
	Height    uint64
	CheckedAt time.Time
}

// OK reports whether the last probe succeeded.
func (s LedgerStatus) OK() bool {
	return s.State == StatusOK
}

// Monitor probes the ledger on a fixed interval and keeps the last result so
// health checks never block on the RPC node.
type Monitor struct {
	prober    ledger.Prober
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	scheduler gocron.Scheduler

	mu   sync.RWMutex
	last LedgerStatus
}

// NewMonitor schedules a probe every interval, starting immediately.
func NewMonitor(prober ledger.Prober, interval, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) (*Monitor, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	mon := &Monitor{
		prober:    prober,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
		scheduler: s,
		last:      LedgerStatus{State: statusPending},
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(mon.probe),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule ledger probe: %w", err)
	}
	return mon, nil
}

// Start begins probing.
func (m *Monitor) Start() {
	m.logger.Info("starting ledger probe")
	m.scheduler.Start()
}

// Stop halts probing and waits for a running probe to finish.
func (m *Monitor) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		m.logger.Warn("ledger probe shutdown", slog.Any("error", err))
	}
}

// Status returns the last probe result.
func (m *Monitor) Status() LedgerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Probe queries the chain head once and records the outcome.
func (m *Monitor) Probe(ctx context.Context) LedgerStatus {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	height, err := m.prober.BlockNumber(ctx)
	m.metrics.LedgerProbe(height, err)

	status := LedgerStatus{State: StatusOK, Height: height, CheckedAt: time.Now().UTC()}
	if err != nil {
		status = LedgerStatus{State: err.Error(), CheckedAt: status.CheckedAt}
	}

	m.mu.Lock()
	prev := m.last
	m.last = status
	m.mu.Unlock()

	if prev.OK() != status.OK() || prev.State == statusPending {
		if status.OK() {
			m.logger.Info("ledger reachable", slog.Uint64("block", height))
		} else {
			m.logger.Error("ledger unreachable", slog.Any("error", err))
		}
	}
	return status
}

func (m *Monitor) probe() {
	m.Probe(context.Background())
}

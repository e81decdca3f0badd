package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/logging"
	"github.com/certledger/certledger/internal/metrics"
)

type flakyProber struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (p *flakyProber) BlockNumber(context.Context) (uint64, error) {
	p.calls.Add(1)
	if p.fail.Load() {
		return 0, errors.New("connection refused")
	}
	return 12, nil
}

func TestMonitorProbeRecordsStatus(t *testing.T) {
	prober := &flakyProber{}
	m := metrics.New()
	mon, err := NewMonitor(prober, time.Hour, time.Second, m, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(mon.Stop)

	assert.False(t, mon.Status().OK())

	status := mon.Probe(context.Background())
	assert.True(t, status.OK())
	assert.Equal(t, uint64(12), mon.Status().Height)

	prober.fail.Store(true)
	status = mon.Probe(context.Background())
	assert.False(t, status.OK())
	assert.Equal(t, "connection refused", mon.Status().State)

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "certledger_ledger_up" {
			found = true
			assert.Zero(t, f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestMonitorStartProbesImmediately(t *testing.T) {
	mon, err := NewMonitor(ledger.NewInMemory(common.Address{}), time.Hour, time.Second, nil, logging.Discard())
	require.NoError(t, err)
	mon.Start()
	t.Cleanup(mon.Stop)

	require.Eventually(t, func() bool { return mon.Status().OK() }, 2*time.Second, 10*time.Millisecond)
}

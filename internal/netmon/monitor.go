package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ProbeFunc checks reachability of the backing store (typically a DB ping
// with a short deadline).
type ProbeFunc func(ctx context.Context) error

const probeTimeout = 3 * time.Second

// Monitor tracks process-wide online/offline state against the backing store.
// It is an explicitly constructed, injected service — tests instantiate
// independent monitors — with an Start/Stop lifecycle.
//
// Transition listeners registered via OnTransition fire exactly once per
// state change; the queue hooks its replay trigger there.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration

	mu        sync.Mutex
	online    bool
	listeners []func(online bool)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor builds a stopped monitor. The initial state is offline until the
// first probe succeeds (or SetOnline is called).
func NewMonitor(probe ProbeFunc, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{probe: probe, interval: interval}
}

// IsOnline reports the last observed connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnTransition registers a listener invoked on every state change.
// Register listeners before Start.
func (m *Monitor) OnTransition(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetOnline forces the state, firing listeners on change. Callers that
// observe a hard connection failure mid-request use this to flip the state
// without waiting for the next probe.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	log.Info().Bool("online", online).Msg("netmon: connectivity changed")
	for _, fn := range listeners {
		go fn(online)
	}
}

// Start probes immediately, then on every interval tick until the context is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.runProbe(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("netmon: stopped")
				return
			case <-ticker.C:
				m.runProbe(ctx)
			}
		}
	}()
}

// Stop detaches the probe loop and waits for it to exit. The last observed
// state is kept; queued operations stay persisted for the next start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Monitor) runProbe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := m.probe(probeCtx); err != nil {
		if m.IsOnline() {
			log.Warn().Err(err).Msg("netmon: probe failed, going offline")
		}
		m.SetOnline(false)
		return
	}
	m.SetOnline(true)
}

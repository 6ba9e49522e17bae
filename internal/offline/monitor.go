// Package offline tracks connectivity and answers simple prompts locally when
// the remote model cannot be reached.
package offline

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ProbeFunc reports nil when the remote service is reachable
type ProbeFunc func(ctx context.Context) error

// Monitor holds the current connectivity state. The zero value is offline.
type Monitor struct {
	online atomic.Bool

	mu       sync.Mutex
	watchers []func(online bool)
}

// NewMonitor creates a monitor in the given initial state
func NewMonitor(online bool) *Monitor {
	m := &Monitor{}
	m.online.Store(online)
	return m
}

// Online reports the last known state
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline updates the state and notifies watchers on a transition
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}

	log.Info().Bool("online", online).Msg("connectivity changed")

	m.mu.Lock()
	watchers := append([]func(bool){}, m.watchers...)
	m.mu.Unlock()
	for _, w := range watchers {
		w(online)
	}
}

// OnChange registers fn for state transitions
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	m.watchers = append(m.watchers, fn)
	m.mu.Unlock()
}

// Run probes every interval until ctx is cancelled. The first probe runs immediately.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, probe ProbeFunc) {
	if interval <= 0 || probe == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		err := probe(probeCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Debug().Err(err).Msg("connectivity probe failed")
		}
		m.SetOnline(err == nil)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// TCPProbe dials address and closes the connection immediately
func TCPProbe(address string) ProbeFunc {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

package netmon

import (
	"context"
	"log"
	"sync"
	"time"
)

// Prober checks server reachability. *client.Client satisfies this.
type Prober interface {
	Healthz(ctx context.Context) error
}

// Monitor tracks online/offline state through a periodic reachability probe.
// The OnOnline callback fires on the offline-to-online edge only, exactly
// once per transition, which is what triggers a queue drain.
type Monitor struct {
	mu       sync.Mutex
	prober   Prober
	timeout  time.Duration
	online   bool
	probed   bool
	onOnline func()
}

// New creates a monitor. onOnline may be nil.
func New(prober Prober, timeout time.Duration, onOnline func()) *Monitor {
	return &Monitor{
		prober:   prober,
		timeout:  timeout,
		onOnline: onOnline,
	}
}

// Probe runs one reachability check and returns the resulting online state.
// Meant to be scheduled at a fixed interval.
func (m *Monitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Healthz(probeCtx)
	nowOnline := err == nil

	m.mu.Lock()
	wasOnline := m.online
	firstProbe := !m.probed
	m.online = nowOnline
	m.probed = true
	m.mu.Unlock()

	if nowOnline && (firstProbe || !wasOnline) {
		log.Printf("Network is reachable, triggering queue drain")
		if m.onOnline != nil {
			m.onOnline()
		}
	}
	if !nowOnline && (firstProbe || wasOnline) {
		log.Printf("Network is unreachable: %v", err)
	}

	return nowOnline
}

// Online reports the state observed by the last probe. Before the first
// probe the device is assumed offline.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

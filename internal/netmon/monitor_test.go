package netmon

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedProber struct {
	results []error
	calls   int
}

func (p *scriptedProber) Healthz(ctx context.Context) error {
	if p.calls >= len(p.results) {
		return nil
	}
	err := p.results[p.calls]
	p.calls++
	return err
}

var errDown = errors.New("connection refused")

func TestMonitorEdgeTriggeredCallback(t *testing.T) {
	tests := []struct {
		name      string
		results   []error
		wantFires int
	}{
		{
			name:      "first online probe fires",
			results:   []error{nil},
			wantFires: 1,
		},
		{
			name:      "staying online fires once",
			results:   []error{nil, nil, nil},
			wantFires: 1,
		},
		{
			name:      "offline never fires",
			results:   []error{errDown, errDown},
			wantFires: 0,
		},
		{
			name:      "offline to online fires on the edge",
			results:   []error{errDown, errDown, nil, nil},
			wantFires: 1,
		},
		{
			name:      "each recovery fires again",
			results:   []error{nil, errDown, nil, errDown, nil},
			wantFires: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fires := 0
			m := New(&scriptedProber{results: tt.results}, time.Second, func() { fires++ })

			for range tt.results {
				m.Probe(context.Background())
			}

			if fires != tt.wantFires {
				t.Errorf("callback fired %d times, want %d", fires, tt.wantFires)
			}
		})
	}
}

func TestMonitorOnlineState(t *testing.T) {
	m := New(&scriptedProber{results: []error{errDown, nil}}, time.Second, nil)

	if m.Online() {
		t.Error("monitor must assume offline before the first probe")
	}

	if got := m.Probe(context.Background()); got {
		t.Error("Probe() = true on a failing health check")
	}
	if m.Online() {
		t.Error("Online() = true after a failed probe")
	}

	if got := m.Probe(context.Background()); !got {
		t.Error("Probe() = false on a passing health check")
	}
	if !m.Online() {
		t.Error("Online() = false after a passing probe")
	}
}

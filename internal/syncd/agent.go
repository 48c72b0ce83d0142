// Package syncd is the device-side sync agent: it owns the local store, the
// durable action queue and the network monitor, and keeps the device
// converged with the server whenever connectivity allows.
package syncd

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"linguaquest/internal/client"
	"linguaquest/internal/config"
	"linguaquest/internal/localstore"
	"linguaquest/internal/netmon"
	"linguaquest/internal/queue"
	"linguaquest/internal/reconcile"
)

// Agent wires the offline-first device stack together. Probes, drains and
// unlock-cache refreshes run on a scheduler; an offline-to-online edge
// triggers an immediate drain instead of waiting for the next slot.
type Agent struct {
	cfg        *config.Config
	store      *localstore.Store
	api        *client.Client
	queue      *queue.Queue
	monitor    *netmon.Monitor
	reconciler *reconcile.Reconciler
	scheduler  *gocron.Scheduler

	drainNow  chan struct{}
	listening atomic.Bool
}

// New builds an agent from config. The local store is opened immediately so
// a corrupt store path fails fast, before any jobs are scheduled.
func New(cfg *config.Config) (*Agent, error) {
	if cfg.DeviceUserID == "" {
		return nil, fmt.Errorf("DEVICE_USER_ID must be set")
	}

	store, err := localstore.Open(cfg.DeviceStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	api := client.New(cfg.APIBaseURL, cfg.DeviceToken, cfg.ProbeTimeout)
	q := queue.New(store, api, cfg.DeviceUserID)

	a := &Agent{
		cfg:        cfg,
		store:      store,
		api:        api,
		queue:      q,
		reconciler: reconcile.NewReconciler(store, api, q, cfg.DeviceUserID),
		scheduler:  gocron.NewScheduler(time.UTC),
		drainNow:   make(chan struct{}, 1),
	}
	a.monitor = netmon.New(api, cfg.ProbeTimeout, a.requestDrain)

	return a, nil
}

// Reconciler exposes the save/restore/clear surface for an embedding app.
func (a *Agent) Reconciler() *reconcile.Reconciler {
	return a.reconciler
}

// Queue exposes the pending-action queue for an embedding app.
func (a *Agent) Queue() *queue.Queue {
	return a.queue
}

// Online reports the last observed connectivity state.
func (a *Agent) Online() bool {
	return a.monitor.Online()
}

// Run schedules the periodic jobs and blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.scheduler.Every(a.cfg.ProbeInterval).Do(func() {
		a.monitor.Probe(ctx)
	})

	a.scheduler.Every(a.cfg.DrainInterval).Do(func() {
		a.drain(ctx)
	})

	a.scheduler.StartAsync()
	defer a.scheduler.Stop()

	log.Printf("Sync agent started for user %s (api: %s)", a.cfg.DeviceUserID, a.cfg.APIBaseURL)

	// First probe runs inline so the agent knows its state before the
	// scheduler's first slot.
	a.monitor.Probe(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Sync agent stopping")
			return a.store.Close()
		case <-a.drainNow:
			a.drain(ctx)
			a.listen(ctx)
		}
	}
}

// listen starts the push-event loop after an online edge. Another device
// syncing invalidates this device's unlock cache, so stats pushes trigger a
// refresh. The loop exits when the connection drops; the next online edge
// starts a fresh one.
func (a *Agent) listen(ctx context.Context) {
	if !a.listening.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer a.listening.Store(false)

		err := a.api.Events(ctx, func(ev client.Event) {
			if ev.Event == client.EventUserDataUpdated {
				a.refreshUnlocked(ctx)
			}
		})
		if err != nil {
			log.Printf("Event channel closed: %v", err)
		}
	}()
}

// requestDrain is the monitor's offline-to-online callback. It never blocks;
// a drain request that is already pending is enough.
func (a *Agent) requestDrain() {
	select {
	case a.drainNow <- struct{}{}:
	default:
	}
}

// drain flushes the pending queue and refreshes the cached unlock list.
// Offline or empty-queue calls are cheap no-ops.
func (a *Agent) drain(ctx context.Context) {
	if !a.monitor.Online() {
		return
	}

	if n := a.queue.Len(); n > 0 {
		log.Printf("Draining %d pending actions", n)
		if err := a.queue.Drain(ctx); err != nil {
			log.Printf("Queue drain stopped: %v", err)
			return
		}
	}

	a.refreshUnlocked(ctx)
}

// refreshUnlocked caches the server's unlocked stage list so the app can
// gate levels while offline.
func (a *Agent) refreshUnlocked(ctx context.Context) {
	ids, err := a.api.UnlockedLevels(ctx, a.cfg.DeviceUserID)
	if err != nil {
		log.Printf("Failed to refresh unlocked levels: %v", err)
		return
	}
	if err := a.store.PutUnlocked(a.cfg.DeviceUserID, ids); err != nil {
		log.Printf("Failed to cache unlocked levels: %v", err)
	}
}

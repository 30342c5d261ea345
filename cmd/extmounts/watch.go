package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/mount"
)

// cmdWatch lists the scope's mounts at a fixed interval, logging every
// status change, until the context is cancelled. When metrics are enabled
// the Prometheus endpoint is served meanwhile.
func cmdWatch(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet(env, "watch")
	interval := fs.Duration("interval", time.Minute, "Time between two rounds of checks")
	once := fs.Bool("once", false, "Run a single round and exit")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *interval <= 0 {
		return fmt.Errorf("watch: interval must be positive")
	}

	svc, err := env.service(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stays nil (never ready) without a metrics server.
	var serverDone chan error
	if server := env.runtime.Metrics.Server; server != nil && !*once {
		serverDone = make(chan error, 1)
		go func() {
			serverDone <- server.Start(ctx)
		}()
	}

	w := &watcher{svc: svc, last: make(map[int]mount.StatusCode)}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		if err := w.round(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Mount check failed: %v", err)
		}
		if *once {
			return env.printer().printMounts(w.configs)
		}

		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, stopping watch")
			if serverDone != nil {
				return <-serverDone
			}
			return nil
		case err := <-serverDone:
			// Start only returns early on a listen failure.
			return err
		case <-ticker.C:
		}
	}
}

// watcher remembers the last status of every mount.
type watcher struct {
	svc     *mount.Service
	last    map[int]mount.StatusCode
	configs []*mount.MountConfig
}

func (w *watcher) round(ctx context.Context) error {
	configs, err := w.svc.List(ctx)
	if err != nil {
		return err
	}
	w.configs = configs

	seen := make(map[int]bool, len(configs))
	for _, cfg := range configs {
		seen[cfg.ID] = true
		if cfg.Status == nil {
			continue
		}
		status := *cfg.Status

		previous, known := w.last[cfg.ID]
		switch {
		case !known:
			logger.Info("Mount %d (/%s, %s): %s", cfg.ID, cfg.MountPoint, cfg.BackendClass, status)
		case previous != status:
			logger.Warn("Mount %d (/%s, %s): %s -> %s", cfg.ID, cfg.MountPoint, cfg.BackendClass, previous, status)
		}
		w.last[cfg.ID] = status
	}

	for id := range w.last {
		if !seen[id] {
			logger.Info("Mount %d removed", id)
			delete(w.last, id)
		}
	}
	return nil
}

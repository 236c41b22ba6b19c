package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/internal/logger"
	"github.com/oshokin/yale-alarm/internal/publisher"
	"github.com/oshokin/yale-alarm/internal/repository/state"
	"github.com/oshokin/yale-alarm/internal/service/common"
	"github.com/oshokin/yale-alarm/yale"
)

// Options controls the watcher polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// PollInterval overrides the interval from the settings when positive.
	PollInterval time.Duration
	// StateFile overrides the state file from the settings when set.
	StateFile string
}

// statusReader is the part of the panel API the watcher needs.
type statusReader interface {
	Status(ctx context.Context) (yale.AlarmState, error)
}

// Run polls the panel until the context is canceled and publishes changes.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "watch")

	session, err := common.Open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	interval := session.Config.WatchInterval
	if opts.PollInterval > 0 {
		interval = opts.PollInterval
	}

	pub, err := publisher.New(ctx, session.Config.MQTT)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}

	defer func() {
		if err := pub.Close(); err != nil {
			logger.ErrorKV(ctx, "Close publisher failed", "error", err)
		}
	}()

	w := &Watcher{
		panel:     session.Client.Panel,
		publisher: pub,
		actor:     session.Actor,
		interval:  interval,
	}

	stateFile := session.Config.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	if stateFile != "" {
		w.repo = state.NewFileRepository(stateFile)
	}

	return w.Watch(ctx)
}

// Watcher publishes panel state changes.
type Watcher struct {
	panel     statusReader
	publisher publisher.Publisher
	actor     *alarm.Actor
	interval  time.Duration
	// repo persists the last published snapshot, nil disables persistence.
	repo state.Repository
	// last is the most recently published snapshot.
	last *alarm.Snapshot
}

// Watch checks the panel right away and then on every tick until ctx ends.
// A failed check is logged and polling continues.
func (w *Watcher) Watch(ctx context.Context) error {
	logger.InfoKV(ctx, "Watching alarm state", "interval", w.interval.String())

	w.restore(ctx)
	w.check(ctx)

	// Setup polling ticker with fixed interval.
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check reads the panel state once and publishes it when it changed.
func (w *Watcher) check(ctx context.Context) {
	current, err := w.panel.Status(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.ErrorKV(ctx, "Check state failed", "error", err)
		}

		return
	}

	snapshot := &alarm.Snapshot{Timestamp: time.Now(), State: current, Observer: w.actor}

	logger.DebugKV(ctx, "Alarm state", "state", current.String())

	if !snapshot.Changed(w.last) {
		return
	}

	if err = w.publisher.Publish(ctx, snapshot); err != nil {
		logger.ErrorKV(ctx, "Publish state failed", "error", err)

		return
	}

	w.last = snapshot.Clone()

	if w.repo != nil {
		if err = w.repo.Save(ctx, snapshot); err != nil {
			logger.ErrorKV(ctx, "Save state failed", "error", err)
		}
	}
}

// restore loads the snapshot published before the last restart.
func (w *Watcher) restore(ctx context.Context) {
	if w.repo == nil {
		return
	}

	last, err := w.repo.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNotFound):
		return
	case err != nil:
		logger.ErrorKV(ctx, "Load state failed", "error", err)
		return
	}

	logger.DebugKV(ctx, "Restored last published state", "state", last.State.String(), "timestamp", last.Timestamp)
	w.last = last
}

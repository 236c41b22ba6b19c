package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/internal/logger"
	"github.com/oshokin/yale-alarm/internal/service/common"
	"github.com/oshokin/yale-alarm/yale"
)

// Options configures the panel commands.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Output receives command results, stdout if nil.
	Output io.Writer
	// DesiredState is the target of SetState.
	DesiredState yale.AlarmState
	// Wait makes SetState poll until the panel reports DesiredState.
	Wait bool
	// WaitTimeout bounds the confirmation polling.
	WaitTimeout time.Duration
	// PollInterval is the delay between confirmation polls.
	PollInterval time.Duration
	// Confirm must be set for Panic to sound the alarm.
	Confirm bool
}

const (
	// defaultPollInterval is the delay between confirmation polls.
	defaultPollInterval = 1 * time.Second
	// defaultWaitTimeout bounds confirmation polling.
	defaultWaitTimeout = 30 * time.Second
)

// errPanicNotConfirmed is returned when Panic runs without confirmation.
var errPanicNotConfirmed = errors.New("panic must be confirmed with --confirm")

// Status prints the current arming state.
func Status(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "status")

	session, err := common.Open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	state, err := session.Client.Panel.Status(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	_, err = fmt.Fprintln(output(opts), state.String())

	return err
}

// SetState sends one mode change and optionally waits for the panel to
// report it. The change is never re-sent while waiting.
func SetState(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "set-state")

	if opts.DesiredState == yale.StateUnknown {
		return yale.ErrUnknownState
	}

	session, err := common.Open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Changing alarm state",
		"desired_state", opts.DesiredState.String(),
		"actor", session.Actor.String(),
	)

	if err = session.Client.Panel.SetState(ctx, opts.DesiredState); err != nil {
		return fmt.Errorf("set state: %w", err)
	}

	snapshot := &alarm.Snapshot{
		Timestamp: time.Now(),
		State:     opts.DesiredState,
		Observer:  session.Actor,
	}

	if opts.Wait {
		if snapshot, err = waitForState(ctx, session.Client.Panel, session.Actor, opts); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(output(opts), formatSnapshot(snapshot))

	return err
}

// Panic sounds the alarm.
func Panic(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "panic")

	if !opts.Confirm {
		return errPanicNotConfirmed
	}

	session, err := common.Open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	logger.WarnKV(ctx, "Triggering panic", "actor", session.Actor.String())

	if err = session.Client.Panel.TriggerPanic(ctx); err != nil {
		return fmt.Errorf("trigger panic: %w", err)
	}

	_, err = fmt.Fprintln(output(opts), "panic triggered")

	return err
}

// statusReader is the part of the panel API needed for confirmation polling.
type statusReader interface {
	Status(ctx context.Context) (yale.AlarmState, error)
}

// waitForState polls until the panel reports the desired state or the wait times out.
func waitForState(
	ctx context.Context,
	panel statusReader,
	actor *alarm.Actor,
	opts *Options,
) (*alarm.Snapshot, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	timeout := opts.WaitTimeout
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// attempt checks the panel once, returns (snapshot, confirmed).
	attempt := func() (*alarm.Snapshot, bool) {
		state, err := panel.Status(ctx)
		if err != nil {
			// Log error but keep polling, the change may still land.
			logger.ErrorKV(ctx, "Status check failed", "error", err)
			return nil, false
		}

		logger.DebugKV(ctx, "Panel state", "state", state.String())

		if state != opts.DesiredState {
			return nil, false
		}

		return &alarm.Snapshot{Timestamp: time.Now(), State: state, Observer: actor}, true
	}

	if snapshot, ok := attempt(); ok {
		return snapshot, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", opts.DesiredState, ctx.Err())
		case <-ticker.C:
			if snapshot, ok := attempt(); ok {
				return snapshot, nil
			}
		}
	}
}

// formatSnapshot converts a snapshot to a readable line.
func formatSnapshot(s *alarm.Snapshot) string {
	return fmt.Sprintf("%s by %s (%s)", s.State, s.Observer, s.Timestamp.Format(time.RFC3339))
}

func output(opts *Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}

	return os.Stdout
}

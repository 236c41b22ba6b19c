package locks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/oshokin/yale-alarm/internal/logger"
	"github.com/oshokin/yale-alarm/internal/service/common"
	"github.com/oshokin/yale-alarm/yale"
)

// Options configures the lock commands.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Output receives command results, stdout if nil.
	Output io.Writer
	// Name selects the lock for single-lock commands.
	Name string
	// PIN is sent when opening locks that require one.
	PIN string
	// Volume is the keypad volume name: high, low or off.
	Volume string
	// AutoLock is the desired automatic re-bolting setting.
	AutoLock bool
}

// errNameRequired is returned when a single-lock command gets no lock name.
var errNameRequired = errors.New("lock name must be provided")

// List prints every lock with its position and configuration.
func List(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "locks")

	session, err := common.Open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(output(opts), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATE\tVOLUME\tAUTOLOCK")

	for lock, err := range session.Client.Locks.All(ctx) {
		if err != nil {
			return fmt.Errorf("list locks: %w", err)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n",
			lock.Name,
			lock.Observed,
			yale.Volume(lock.Config.Volume),
			lock.Config.AutoLockEnabled(),
		)
	}

	return w.Flush()
}

// Open unbolts the named lock.
func Open(ctx context.Context, opts *Options) error {
	return withLock(ctx, opts, "open", func(ctx context.Context, lock *yale.Lock) error {
		return lock.Open(ctx, opts.PIN)
	})
}

// Close bolts the named lock.
func Close(ctx context.Context, opts *Options) error {
	return withLock(ctx, opts, "close", func(ctx context.Context, lock *yale.Lock) error {
		return lock.Close(ctx)
	})
}

// SetVolume changes the keypad volume of the named lock.
func SetVolume(ctx context.Context, opts *Options) error {
	volume, err := yale.ParseVolume(opts.Volume)
	if err != nil {
		return err
	}

	return withLock(ctx, opts, "volume", func(ctx context.Context, lock *yale.Lock) error {
		return lock.SetVolume(ctx, volume)
	})
}

// SetAutoLock switches automatic re-bolting of the named lock.
func SetAutoLock(ctx context.Context, opts *Options) error {
	return withLock(ctx, opts, "autolock", func(ctx context.Context, lock *yale.Lock) error {
		return lock.SetAutoLock(ctx, opts.AutoLock)
	})
}

// withLock resolves the named lock, applies action and prints the resulting position.
func withLock(
	ctx context.Context,
	opts *Options,
	op string,
	action func(context.Context, *yale.Lock) error,
) error {
	ctx = logger.WithKV(logger.WithName(ctx, "locks"), "lock", opts.Name)

	if opts.Name == "" {
		return errNameRequired
	}

	session, err := common.Open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	lock, err := session.Client.Locks.Get(ctx, opts.Name)
	if err != nil {
		return fmt.Errorf("find lock: %w", err)
	}

	logger.InfoKV(ctx, "Lock command", "op", op, "actor", session.Actor.String())

	if err = action(ctx, lock); err != nil {
		return fmt.Errorf("%s lock: %w", op, err)
	}

	state, err := lock.State(ctx)
	if err != nil {
		return fmt.Errorf("read lock state: %w", err)
	}

	_, err = fmt.Fprintf(output(opts), "%s: %s\n", lock.Name, state)

	return err
}

func output(opts *Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}

	return os.Stdout
}

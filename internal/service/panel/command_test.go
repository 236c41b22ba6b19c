package panel

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/internal/yaletest"
	"github.com/oshokin/yale-alarm/yale"
)

// scriptedPanel answers Status from a fixed script, repeating the last entry.
type scriptedPanel struct {
	mu     sync.Mutex
	script []scriptStep
	calls  int
}

type scriptStep struct {
	state yale.AlarmState
	err   error
}

func (p *scriptedPanel) Status(context.Context) (yale.AlarmState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	step := p.script[min(p.calls, len(p.script)-1)]
	p.calls++

	return step.state, step.err
}

// TestWaitForState verifies polling continues through errors and stale states until confirmation.
func TestWaitForState(t *testing.T) {
	t.Parallel()

	panel := &scriptedPanel{script: []scriptStep{
		{state: yale.StateDisarmed},
		{err: errors.New("temporary")},
		{state: yale.StateArmedFull},
	}}

	actor := &alarm.Actor{Hostname: "pc", Username: "me"}

	snapshot, err := waitForState(context.Background(), panel, actor, &Options{
		DesiredState: yale.StateArmedFull,
		PollInterval: 5 * time.Millisecond,
		WaitTimeout:  time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, yale.StateArmedFull, snapshot.State)
	require.Same(t, actor, snapshot.Observer)
	require.Equal(t, 3, panel.calls)
}

// TestWaitForState_Timeout verifies waiting gives up after the timeout.
func TestWaitForState_Timeout(t *testing.T) {
	t.Parallel()

	panel := &scriptedPanel{script: []scriptStep{{state: yale.StateDisarmed}}}

	_, err := waitForState(context.Background(), panel, nil, &Options{
		DesiredState: yale.StateArmedPartial,
		PollInterval: 5 * time.Millisecond,
		WaitTimeout:  30 * time.Millisecond,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestStatus prints the panel state.
func TestStatus(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	fake.SetMode("home")

	var out bytes.Buffer

	require.NoError(t, Status(context.Background(), &Options{ConfigPath: fake.WriteConfig(t), Output: &out}))
	require.Equal(t, "armed_partial\n", out.String())
}

// TestSetState_Wait arms the panel and waits for the confirmation.
func TestSetState_Wait(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)

	var out bytes.Buffer

	err := SetState(context.Background(), &Options{
		ConfigPath:   fake.WriteConfig(t),
		Output:       &out,
		DesiredState: yale.StateArmedFull,
		Wait:         true,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, "arm", fake.Mode())
	require.Contains(t, out.String(), "armed_full by ")
	// One mode change and one confirming status poll.
	require.Equal(t, 2, fake.Requests("/yapi/api/panel/mode/"))
}

// TestSetState_Unknown rejects an unknown target before connecting.
func TestSetState_Unknown(t *testing.T) {
	t.Parallel()

	err := SetState(context.Background(), &Options{ConfigPath: "does-not-matter.yaml"})
	require.ErrorIs(t, err, yale.ErrUnknownState)
}

// TestPanic requires confirmation before calling the panel.
func TestPanic(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	path := fake.WriteConfig(t)

	err := Panic(context.Background(), &Options{ConfigPath: path})
	require.ErrorIs(t, err, errPanicNotConfirmed)
	require.Zero(t, fake.Requests("/api/panel/panic"))

	var out bytes.Buffer

	require.NoError(t, Panic(context.Background(), &Options{ConfigPath: path, Confirm: true, Output: &out}))
	require.Equal(t, 1, fake.Requests("/api/panel/panic"))
	require.Equal(t, "panic triggered\n", out.String())
}

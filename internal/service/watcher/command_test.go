package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/internal/repository/state"
	"github.com/oshokin/yale-alarm/yale"
)

// memoryPublisher keeps published snapshots in memory.
type memoryPublisher struct {
	mu        sync.Mutex
	snapshots []*alarm.Snapshot
	failNext  bool
}

func (p *memoryPublisher) Publish(_ context.Context, s *alarm.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext {
		p.failNext = false
		return errors.New("broker down")
	}

	p.snapshots = append(p.snapshots, s.Clone())

	return nil
}

func (p *memoryPublisher) Close() error { return nil }

func (p *memoryPublisher) states() []yale.AlarmState {
	p.mu.Lock()
	defer p.mu.Unlock()

	states := make([]yale.AlarmState, 0, len(p.snapshots))
	for _, s := range p.snapshots {
		states = append(states, s.State)
	}

	return states
}

// sequencePanel returns scripted states, then keeps repeating the last one.
type sequencePanel struct {
	mu     sync.Mutex
	states []yale.AlarmState
	errs   map[int]error
	calls  int
}

func (p *sequencePanel) Status(context.Context) (yale.AlarmState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.calls
	p.calls++

	if err := p.errs[i]; err != nil {
		return yale.StateUnknown, err
	}

	return p.states[min(i, len(p.states)-1)], nil
}

// TestCheck publishes only state changes and skips failed polls.
func TestCheck(t *testing.T) {
	t.Parallel()

	panel := &sequencePanel{
		states: []yale.AlarmState{
			yale.StateDisarmed,
			yale.StateDisarmed,
			yale.StateDisarmed,
			yale.StateArmedFull,
			yale.StateArmedFull,
			yale.StateDisarmed,
		},
		errs: map[int]error{2: errors.New("timeout")},
	}
	pub := new(memoryPublisher)
	actor := &alarm.Actor{Hostname: "pc", Username: "me"}

	w := &Watcher{panel: panel, publisher: pub, actor: actor, interval: time.Hour}

	for range 6 {
		w.check(context.Background())
	}

	require.Equal(t, []yale.AlarmState{yale.StateDisarmed, yale.StateArmedFull, yale.StateDisarmed}, pub.states())
	require.Equal(t, actor, pub.snapshots[0].Observer)
}

// TestCheck_PublishFailureRetried republishes a change whose publish failed.
func TestCheck_PublishFailureRetried(t *testing.T) {
	t.Parallel()

	panel := &sequencePanel{states: []yale.AlarmState{yale.StateArmedPartial}}
	pub := &memoryPublisher{failNext: true}

	w := &Watcher{panel: panel, publisher: pub, interval: time.Hour}

	w.check(context.Background())
	require.Empty(t, pub.states())

	w.check(context.Background())
	require.Equal(t, []yale.AlarmState{yale.StateArmedPartial}, pub.states())
}

// TestWatch polls on the interval and exits when the context ends.
func TestWatch(t *testing.T) {
	t.Parallel()

	panel := &sequencePanel{states: []yale.AlarmState{yale.StateDisarmed, yale.StateArmedFull}}
	pub := new(memoryPublisher)

	w := &Watcher{panel: panel, publisher: pub, interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Watch(ctx) }()

	require.Eventually(t, func() bool {
		return len(pub.states()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, []yale.AlarmState{yale.StateDisarmed, yale.StateArmedFull}, pub.states())
}

// TestWatch_RestoresLastState skips publishing a state that was already published before a restart.
func TestWatch_RestoresLastState(t *testing.T) {
	t.Parallel()

	repo := state.NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, repo.Save(context.Background(), &alarm.Snapshot{State: yale.StateArmedFull}))

	panel := &sequencePanel{states: []yale.AlarmState{yale.StateArmedFull, yale.StateDisarmed}}
	pub := new(memoryPublisher)

	w := &Watcher{panel: panel, publisher: pub, repo: repo, interval: time.Hour}

	w.restore(context.Background())
	w.check(context.Background())
	require.Empty(t, pub.states())

	w.check(context.Background())
	require.Equal(t, []yale.AlarmState{yale.StateDisarmed}, pub.states())

	saved, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, yale.StateDisarmed, saved.State)
}

// TestWatch_RestoresUnknownState verifies an unknown state saved earlier is not published again.
func TestWatch_RestoresUnknownState(t *testing.T) {
	t.Parallel()

	repo := state.NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, repo.Save(context.Background(), &alarm.Snapshot{State: yale.StateUnknown}))

	panel := &sequencePanel{states: []yale.AlarmState{yale.StateUnknown, yale.StateArmedFull}}
	pub := new(memoryPublisher)

	w := &Watcher{panel: panel, publisher: pub, repo: repo, interval: time.Hour}

	w.restore(context.Background())
	require.NotNil(t, w.last)
	require.Equal(t, yale.StateUnknown, w.last.State)

	w.check(context.Background())
	require.Empty(t, pub.states())

	w.check(context.Background())
	require.Equal(t, []yale.AlarmState{yale.StateArmedFull}, pub.states())
}

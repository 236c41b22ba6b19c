package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/yale-alarm/internal/config"
	domain "github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/yale"
)

// Repository defines persistence operations for the last published snapshot.
type Repository interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snapshot *domain.Snapshot) error
}

// FileRepository persists the snapshot to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the state file does not exist yet.
	ErrNotFound = errors.New("state not found")
	// errUnknownState is returned when the file holds an unrecognised state name.
	errUnknownState = errors.New("unknown alarm state in state file")
)

// record is the on-disk form of a snapshot.
type record struct {
	Timestamp time.Time    `json:"timestamp"`
	State     string       `json:"state"`
	Observer  *actorRecord `json:"observer,omitempty"`
}

type actorRecord struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var rec record
	if err = json.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return fromRecord(&rec)
}

// Save writes the snapshot to disk.
func (r *FileRepository) Save(_ context.Context, snapshot *domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(toRecord(snapshot), "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// fromRecord converts the on-disk record into the domain Snapshot model.
func fromRecord(rec *record) (*domain.Snapshot, error) {
	alarmState, err := parseStateName(rec.State)
	if err != nil {
		return nil, err
	}

	var actor *domain.Actor
	if rec.Observer != nil {
		actor = &domain.Actor{
			Hostname: rec.Observer.Hostname,
			Username: rec.Observer.Username,
		}
	}

	return &domain.Snapshot{
		Timestamp: rec.Timestamp,
		State:     alarmState,
		Observer:  actor,
	}, nil
}

// parseStateName maps a stored state name back to an AlarmState.
// The watcher records "unknown" when the panel reports a mode it does not recognise.
func parseStateName(name string) (yale.AlarmState, error) {
	if name == yale.StateUnknown.String() {
		return yale.StateUnknown, nil
	}

	alarmState, ok := yale.ParseState(name)
	if !ok {
		return yale.StateUnknown, fmt.Errorf("%w: %q", errUnknownState, name)
	}

	return alarmState, nil
}

// toRecord converts the domain Snapshot model into the on-disk record.
func toRecord(snapshot *domain.Snapshot) *record {
	var actor *actorRecord
	if snapshot.Observer != nil {
		actor = &actorRecord{
			Hostname: snapshot.Observer.Hostname,
			Username: snapshot.Observer.Username,
		}
	}

	return &record{
		Timestamp: snapshot.Timestamp,
		State:     snapshot.State.String(),
		Observer:  actor,
	}
}

package publisher

import (
	"context"

	"github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/internal/logger"
)

// Log writes snapshots to the context logger.
type Log struct{}

// NewLog creates a log-only publisher.
func NewLog() *Log {
	return new(Log)
}

// Publish implements Publisher.
func (*Log) Publish(ctx context.Context, snapshot *alarm.Snapshot) error {
	logger.InfoKV(ctx, "Alarm state changed",
		"state", snapshot.State.String(),
		"armed", snapshot.State.IsArmed(),
		"observer", snapshot.Observer.String(),
		"timestamp", snapshot.Timestamp,
	)

	return nil
}

// Close implements Publisher.
func (*Log) Close() error {
	return nil
}

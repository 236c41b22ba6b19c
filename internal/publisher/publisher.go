package publisher

import (
	"context"

	"github.com/oshokin/yale-alarm/internal/config"
	"github.com/oshokin/yale-alarm/internal/domain/alarm"
)

// Publisher receives alarm state snapshots.
type Publisher interface {
	// Publish delivers one snapshot.
	Publish(ctx context.Context, snapshot *alarm.Snapshot) error
	// Close releases the underlying connection.
	Close() error
}

// New returns an MQTT publisher when a broker is configured, otherwise a
// publisher that only logs.
func New(ctx context.Context, cfg config.MQTT) (Publisher, error) {
	if cfg.Broker == "" {
		return NewLog(), nil
	}

	return NewMQTT(ctx, cfg)
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"

	"github.com/oshokin/yale-alarm/internal/config"
	"github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/internal/logger"
	"github.com/oshokin/yale-alarm/yale"
)

// Session bundles what every command needs: settings, a logged-in client
// and the local actor.
type Session struct {
	Config *config.Config
	Client *yale.Client
	Actor  *alarm.Actor
}

// Open loads settings from configPath, detects the actor and logs in.
func Open(ctx context.Context, configPath string) (*Session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// The settings file can only make logging more verbose than the command line.
	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok && cfg.LogLevel != "" && level < logger.Level() {
		logger.SetLevel(level)
	}

	actor, err := DetectActor()
	if err != nil {
		return nil, fmt.Errorf("detect actor: %w", err)
	}

	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Session{Config: cfg, Client: client, Actor: actor}, nil
}

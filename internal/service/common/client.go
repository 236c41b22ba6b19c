//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/oshokin/yale-alarm/internal/config"
	"github.com/oshokin/yale-alarm/internal/logger"
	"github.com/oshokin/yale-alarm/yale"
)

// errConfigRequired is returned when no configuration is provided.
var errConfigRequired = errors.New("configuration must be provided")

// ClientOptions translates settings into yale client options.
func ClientOptions(cfg *config.Config) []yale.Option {
	opts := []yale.Option{
		yale.WithTimeout(cfg.Timeout),
		yale.WithAreaID(cfg.AreaID),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, yale.WithBaseURL(cfg.BaseURL))
	}

	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, yale.WithRateLimit(rate.Limit(cfg.RequestsPerSecond), cfg.Burst))
	}

	return opts
}

// Connect creates a Yale client from cfg and logs in, so that rejected
// credentials surface before any command runs. Extra options override the
// ones derived from cfg.
func Connect(ctx context.Context, cfg *config.Config, extra ...yale.Option) (*yale.Client, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	opts := append(ClientOptions(cfg), extra...)

	client, err := yale.NewClient(yale.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	if err := client.Login(ctx); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	logger.DebugKV(ctx, "Connected to Yale", "base_url", client.BaseURL(), "area", client.AreaID())

	return client, nil
}

package yaletest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/oshokin/yale-alarm/internal/config"
)

// WriteConfig saves a settings file pointing at the fake and returns its path.
// Service discovery keeps the fake's root since the fake announces none.
func (s *Server) WriteConfig(tb testing.TB, mutate ...func(*config.Config)) string {
	tb.Helper()

	cfg := &config.Config{
		Username: Username,
		Password: Password,
		BaseURL:  s.URL(),
		Timeout:  2 * time.Second,
	}

	for _, m := range mutate {
		m(cfg)
	}

	path := filepath.Join(tb.TempDir(), config.DefaultConfigFilename)
	if err := config.Save(path, cfg); err != nil {
		tb.Fatalf("save settings: %v", err)
	}

	return path
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/yale-alarm/internal/config"
	"github.com/oshokin/yale-alarm/internal/yaletest"
	"github.com/oshokin/yale-alarm/yale"
)

// TestConnect_RequiresConfig verifies that Connect rejects a nil configuration.
func TestConnect_RequiresConfig(t *testing.T) {
	t.Parallel()

	c, err := Connect(context.Background(), nil)
	require.Error(t, err)
	require.Nil(t, c)
}

// TestConnect logs in against a fake server using settings values.
func TestConnect(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	cfg := &config.Config{
		Username:          yaletest.Username,
		Password:          yaletest.Password,
		AreaID:            1,
		BaseURL:           fake.URL(),
		Timeout:           time.Second,
		RequestsPerSecond: 100,
		Burst:             5,
	}

	c, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, fake.URL(), c.BaseURL())
	require.Equal(t, 1, c.AreaID())
	require.Equal(t, 1, fake.Grants("password"))
}

// TestConnect_BadCredentials verifies that login failures are reported as auth errors.
func TestConnect_BadCredentials(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	cfg := &config.Config{
		Username: yaletest.Username,
		Password: "nope",
		BaseURL:  fake.URL(),
		Timeout:  time.Second,
	}

	_, err := Connect(context.Background(), cfg)
	require.Error(t, err)
	require.True(t, yale.IsAuth(err))
}

// TestClientOptions verifies the optional settings only add options when set.
func TestClientOptions(t *testing.T) {
	t.Parallel()

	require.Len(t, ClientOptions(&config.Config{}), 2)
	require.Len(t, ClientOptions(&config.Config{BaseURL: "http://x", RequestsPerSecond: 1}), 4)
}

package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseSwitch accepts on/off and boolean spellings.
func TestParseSwitch(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{"on": true, "off": false, "true": true, "0": false} {
		got, err := parseSwitch(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := parseSwitch("maybe")
	require.Error(t, err)
}

// TestCommandTree verifies every command is registered under the root.
func TestCommandTree(t *testing.T) {
	t.Parallel()

	for _, path := range [][]string{
		{"status"}, {"arm"}, {"disarm"}, {"panic"}, {"report"}, {"watch"},
		{"locks", "list"}, {"locks", "open"}, {"locks", "close"}, {"locks", "volume"}, {"locks", "autolock"},
	} {
		found, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], found.Name())
	}
}

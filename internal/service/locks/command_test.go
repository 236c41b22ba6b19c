package locks

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/yale-alarm/internal/yaletest"
	"github.com/oshokin/yale-alarm/yale"
)

// TestList prints one row per lock.
func TestList(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)

	var out bytes.Buffer

	require.NoError(t, List(context.Background(), &Options{ConfigPath: fake.WriteConfig(t), Output: &out}))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	require.Contains(t, string(lines[1]), "front door")
	require.Contains(t, string(lines[1]), "closed")
	require.Contains(t, string(lines[1]), "high")
	require.Contains(t, string(lines[2]), "back door")
	require.Contains(t, string(lines[2]), "open")
}

// TestOpenClose opens and closes a lock and prints the resulting position.
func TestOpenClose(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	path := fake.WriteConfig(t)

	var out bytes.Buffer

	require.NoError(t, Open(context.Background(), &Options{
		ConfigPath: path, Output: &out, Name: "front door", PIN: yaletest.PIN,
	}))
	require.Equal(t, "front door: open\n", out.String())

	out.Reset()

	require.NoError(t, Close(context.Background(), &Options{ConfigPath: path, Output: &out, Name: "front door"}))
	require.Equal(t, "front door: closed\n", out.String())
}

// TestOpen_Errors covers a missing name, an unknown lock and a wrong PIN.
func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	path := fake.WriteConfig(t)
	ctx := context.Background()

	require.ErrorIs(t, Open(ctx, &Options{ConfigPath: path}), errNameRequired)

	err := Open(ctx, &Options{ConfigPath: path, Name: "garage"})
	require.True(t, yale.IsNotFound(err))

	err = Open(ctx, &Options{ConfigPath: path, Name: "front door", PIN: "0000"})
	require.True(t, yale.IsServer(err))
}

// TestConfigure changes volume and autolock.
func TestConfigure(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	path := fake.WriteConfig(t)
	ctx := context.Background()

	var out bytes.Buffer

	require.NoError(t, SetVolume(ctx, &Options{ConfigPath: path, Output: &out, Name: "back door", Volume: "off"}))
	require.Equal(t, "01", fake.LastForm("/yapi/api/minigw/lock/config/")["val"])

	require.NoError(t, SetAutoLock(ctx, &Options{ConfigPath: path, Output: &out, Name: "back door", AutoLock: true}))
	require.Equal(t, "FF", fake.LastForm("/yapi/api/minigw/lock/config/")["val"])

	require.ErrorIs(t, SetVolume(ctx, &Options{ConfigPath: path, Name: "back door", Volume: "loud"}), yale.ErrUnknownVolume)
}

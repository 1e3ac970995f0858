package ctl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/config"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOps struct {
	calls  []string
	err    error
	closed bool
}

func (f *fakeOps) MigrateUp(context.Context) error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeOps) MigrateDown(context.Context) error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeOps) Purge(context.Context) (*services.PurgeResult, error) {
	f.calls = append(f.calls, "purge")
	if f.err != nil {
		return nil, f.err
	}
	return &services.PurgeResult{AcceptKeys: 2, OTPs: 1, RefreshTokens: 7, UnverifiedUsers: 4}, nil
}

func (f *fakeOps) Close() error {
	f.closed = true
	return nil
}

func run(t *testing.T, ops *fakeOps, args ...string) (string, *config.Config, error) {
	t.Helper()
	var got *config.Config
	open := func(_ context.Context, cfg *config.Config) (Operations, error) {
		got = cfg
		return ops, nil
	}

	var out bytes.Buffer
	cmd := NewRootCmd(open, &out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), got, err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		args []string
		call string
		out  string
	}{
		{[]string{"migrate", "up"}, "up", "migrations applied\n"},
		{[]string{"migrate", "down"}, "down", "last migration reverted\n"},
		{[]string{"purge"}, "purge", "purged accept_keys=2 otps=1 refresh_tokens=7 unverified_users=4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			ops := &fakeOps{}
			out, _, err := run(t, ops, tt.args...)

			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, ops.calls)
			assert.Equal(t, tt.out, out)
			assert.True(t, ops.closed)
		})
	}
}

func TestCommand_ErrorClosesAndWraps(t *testing.T) {
	ops := &fakeOps{err: errors.New("boom")}
	_, _, err := run(t, ops, "purge")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge: boom")
	assert.True(t, ops.closed)
}

func TestOpenFailure(t *testing.T) {
	open := func(context.Context, *config.Config) (Operations, error) {
		return nil, errors.New("db down")
	}
	cmd := NewRootCmd(open, &bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "up"})

	assert.EqualError(t, cmd.ExecuteContext(context.Background()), "db down")
}

func TestConfigResolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_dsn: from-file\nmax_db_conns: 3\n"), 0o600))

	t.Run("defaults", func(t *testing.T) {
		_, cfg, err := run(t, &fakeOps{}, "purge")
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.MaxDBConns)
	})

	t.Run("file", func(t *testing.T) {
		_, cfg, err := run(t, &fakeOps{}, "purge", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.DatabaseDSN)
		assert.Equal(t, 3, cfg.MaxDBConns)
	})

	t.Run("flag beats file", func(t *testing.T) {
		_, cfg, err := run(t, &fakeOps{}, "--dsn", "from-flag", "-c", path, "purge")
		require.NoError(t, err)
		assert.Equal(t, "from-flag", cfg.DatabaseDSN)
		assert.Equal(t, 3, cfg.MaxDBConns)
	})

	t.Run("flag beats file after subcommand", func(t *testing.T) {
		ops := &fakeOps{}
		_, cfg, err := run(t, ops, "-c", path, "migrate", "down", "-d", "postgres://staging", "-m", "9")
		require.NoError(t, err)
		assert.Equal(t, []string{"down"}, ops.calls)
		assert.Equal(t, "postgres://staging", cfg.DatabaseDSN)
		assert.Equal(t, 9, cfg.MaxDBConns)
	})

	t.Run("bad file", func(t *testing.T) {
		_, _, err := run(t, &fakeOps{}, "purge", "-c", filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "config file")
	})
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := run(t, &fakeOps{}, "frobnicate")
	assert.Error(t, err)
}

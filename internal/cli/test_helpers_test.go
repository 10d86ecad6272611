package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/sitetime/internal/config"
	"github.com/runnerr0/sitetime/internal/period"
	"github.com/runnerr0/sitetime/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// writeTestConfig writes yaml to a temp config file and returns its path.
func writeTestConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

// unreachableConfig returns defaults pointing the daemon at a closed port.
func unreachableConfig(t *testing.T) *config.Config {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := config.DefaultConfig()
	cfg.Storage.Backend = config.BackendMemory
	cfg.Daemon.Port = port
	return cfg
}

// seedStore returns a memory store holding today's totals for two domains.
func seedStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	keys := period.KeysAt(time.Now())

	a := storage.NewDomainRecord("alpha.com")
	a.Add(keys, 90_000)
	a.FaviconURL = "https://alpha.com/favicon.ico"
	require.NoError(t, store.Set(ctx, a))

	b := storage.NewDomainRecord("beta.org")
	b.Add(keys, 3_723_000)
	require.NoError(t, store.Set(ctx, b))

	return store
}

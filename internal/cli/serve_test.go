package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/sitetime/internal/config"
	"github.com/runnerr0/sitetime/internal/period"
	"github.com/runnerr0/sitetime/internal/storage"
)

func TestServe_TracksUntilShutdown(t *testing.T) {
	store := storage.NewMemoryStore()
	cfg := config.DefaultConfig()
	cfg.Tracking.FlushIntervalMS = 20
	cfg.Tracking.ExcludeDomains = []string{"bank.com"}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	cmd := &ServeCommand{globals: &GlobalFlags{}, version: "test"}
	go func() { done <- cmd.run(ctx, cfg, store, ln, zerolog.Nop()) }()

	post := func(path, body string) int {
		resp, err := http.Post(base+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, post("/v1/tabs/activated", `{"url":"https://work.example.com/doc"}`))
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, http.StatusOK, post("/v1/tabs/navigated", `{"url":"https://login.bank.com/"}`))

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "sitetime_flushes_total")
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	rec, err := store.Get(context.Background(), "work.example.com")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.Total(period.Daily, period.DayKey(time.Now())), int64(100))

	excluded, err := store.Get(context.Background(), "login.bank.com")
	require.NoError(t, err)
	assert.True(t, excluded.Empty())
}

func TestServe_InvalidExclusionRegex(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tracking.ExcludeRegex = []string{"("}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cmd := &ServeCommand{globals: &GlobalFlags{}, version: "test"}
	err = cmd.run(context.Background(), cfg, storage.NewMemoryStore(), ln, zerolog.Nop())
	assert.Error(t, err)
}

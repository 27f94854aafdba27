package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localsearch/engine/pkg/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("hello world"), 0o644))

	cfg := config.Default()
	cfg.Roots = []string{docs}
	cfg.DBPath = filepath.Join(dir, "index.db")
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.EnableActivityMonitor = false
	return cfg
}

func TestNewWiresEveryComponent(t *testing.T) {
	cfg := newTestConfig(t)
	sp, err := New(cfg)
	require.NoError(t, err)
	defer sp.Shutdown()

	assert.NotNil(t, sp.Store)
	assert.NotNil(t, sp.Monitor)
	assert.NotNil(t, sp.IndexW)
	assert.NotNil(t, sp.Watch)
}

func TestRunIndexPassIndexesConfiguredRoots(t *testing.T) {
	cfg := newTestConfig(t)
	sp, err := New(cfg)
	require.NoError(t, err)
	defer sp.Shutdown()

	stats, err := sp.RunIndexPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
	assert.NotEmpty(t, stats.RunID)
}

func TestShutdownIsIdempotent(t *testing.T) {
	cfg := newTestConfig(t)
	sp, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sp.Start(ctx))

	require.NoError(t, sp.Shutdown())
	require.NoError(t, sp.Shutdown())
}

func TestStartBeginsWatchingConfiguredRoots(t *testing.T) {
	cfg := newTestConfig(t)
	sp, err := New(cfg)
	require.NoError(t, err)
	defer sp.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sp.Start(ctx))

	_, err = sp.RunIndexPass(ctx)
	require.NoError(t, err)

	newPath := filepath.Join(cfg.Roots[0], "b.txt")
	require.NoError(t, os.WriteFile(newPath, []byte("new content"), 0o644))

	require.Eventually(t, func() bool {
		live, _ := sp.Store.ExistsLive(newPath)
		return live
	}, 2*time.Second, 20*time.Millisecond)
}

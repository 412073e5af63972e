package live_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cklabs/phonon/internal/graph"
	"github.com/cklabs/phonon/internal/live"
)

func newTestGraph(cps float64) *graph.Graph {
	g := graph.New(44100, cps)
	c := g.AddNode(&graph.Constant{Value: 0})
	g.Output = g.AddNode(graph.NewOutput(graph.Ref(c)))
	return g
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	// Ensure a distinct mtime from whatever preceded this write.
	future := time.Now().Add(10 * time.Millisecond)
	require.NoError(t, os.Chtimes(path, future, future))
}

func TestInitialLoadBuildsGraphFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.phonon")
	writeFile(t, path, "v1")

	var built []string
	w, err := live.New(path, func(src string) (*graph.Graph, error) {
		built = append(built, src)
		return newTestGraph(1), nil
	}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"v1"}, built)
	assert.NotNil(t, w.Current())
}

func TestInitialLoadFailurePropagatesError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.phonon")
	writeFile(t, path, "broken")

	_, err := live.New(path, func(src string) (*graph.Graph, error) {
		return nil, errors.New("parse error")
	}, zerolog.Nop())
	assert.Error(t, err)
}

func TestReloadOnChangeSwapsGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.phonon")
	writeFile(t, path, "v1")

	calls := 0
	w, err := live.New(path, func(src string) (*graph.Graph, error) {
		calls++
		return newTestGraph(1), nil
	}, zerolog.Nop())
	require.NoError(t, err)
	first := w.Current()

	w.SetPollInterval(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	writeFile(t, path, "v2")

	require.Eventually(t, func() bool {
		return w.Current() != first
	}, time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestParseErrorOnReloadKeepsOldGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.phonon")
	writeFile(t, path, "good")

	failNext := false
	w, err := live.New(path, func(src string) (*graph.Graph, error) {
		if failNext {
			return nil, errors.New("boom")
		}
		return newTestGraph(1), nil
	}, zerolog.Nop())
	require.NoError(t, err)
	first := w.Current()

	failNext = true
	w.SetPollInterval(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, path, "bad")
	time.Sleep(100 * time.Millisecond)

	assert.Same(t, first, w.Current())
}

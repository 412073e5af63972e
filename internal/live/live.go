// Package live implements the file-watch/reparse/atomic-swap loop (spec
// §4.8 C8): a wall-clock poll (default 100ms) backed by fsnotify events,
// rebuilding the graph on change and handing the new instance to the audio
// thread via a single atomic pointer swap, never blocking it.
package live

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/cklabs/phonon/internal/graph"
)

// BuildFunc compiles DSL source into a fresh graph. The live package never
// parses DSL itself — it only owns the watch/swap mechanics.
type BuildFunc func(source string) (*graph.Graph, error)

// Watcher polls path for changes and rebuilds the graph via build, exposing
// the current graph through Current for the audio thread to read.
type Watcher struct {
	path         string
	pollInterval time.Duration
	build        BuildFunc
	log          zerolog.Logger

	current atomic.Pointer[graph.Graph]
	modTime time.Time
}

// New loads path once synchronously (a reload failure on the very first
// load is a real error, since there is no previous graph to fall back to)
// and returns a Watcher ready to Run.
func New(path string, build BuildFunc, log zerolog.Logger) (*Watcher, error) {
	w := &Watcher{
		path:         path,
		pollInterval: 100 * time.Millisecond,
		build:        build,
		log:          log,
	}
	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("live: initial load of %s: %w", path, err)
	}
	return w, nil
}

// SetPollInterval overrides the default 100ms wall-clock poll.
func (w *Watcher) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Current returns the most recently built graph (spec §5 "a single-slot
// 'pending graph' cell... read by the audio thread at the top of each audio
// callback"). Safe to call concurrently with Run.
func (w *Watcher) Current() *graph.Graph {
	return w.current.Load()
}

// Run watches the file until ctx is cancelled. fsnotify events trigger an
// immediate reload attempt; a pollInterval ticker is a fallback against
// editors that replace the file via rename (dropping the original inode's
// watch) or events the watcher otherwise misses.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("live: creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		return fmt.Errorf("live: watching %s: %w", w.path, err)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Str("path", w.path).Msg("live: watcher error")
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.checkAndReload()
			}
			if ev.Op&fsnotify.Remove != 0 {
				// Some editors save by rename/remove+create; re-add the watch
				// so subsequent writes to the new inode are still seen.
				_ = fsw.Add(w.path)
			}
		case <-ticker.C:
			w.checkAndReload()
		}
	}
}

// checkAndReload only rebuilds when the file's mtime has actually advanced,
// so the fsnotify-event and ticker paths don't double-reload on every tick.
func (w *Watcher) checkAndReload() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("live: stat failed")
		return
	}
	if !info.ModTime().After(w.modTime) {
		return
	}
	if err := w.reload(); err != nil {
		// Parse-error-keeps-old-graph (spec §4.8 step 5, §4.6 "Pattern-parse
		// failure at reload keeps the previous graph").
		w.log.Error().Err(err).Str("path", w.path).Msg("live: reload failed, keeping previous graph")
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.path, err)
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}

	g, err := w.build(string(data))
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}

	// Preserve sample counter and cps across the swap so cycle position
	// stays continuous (spec §4.8 step 3, invariant "no time jump").
	g.SeedFrom(w.current.Load())

	w.modTime = info.ModTime()
	w.current.Store(g)
	w.log.Info().Str("path", w.path).Msg("live: graph reloaded")
	return nil
}

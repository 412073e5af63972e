// Package samplelib loads a named sample library off disk: one subdirectory
// per sample name, WAV files inside sorted lexicographically and indexed
// from 0 (spec §4.3 C4, §6.4 layout). The voice pool never sees a Library:
// internal/graph's SampleNode looks buffers up with Library.Get and hands
// them to the pool; how buffers got there is this package's concern alone.
package samplelib

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Buffer is one decoded sample: mono float32 PCM at its own native sample
// rate. Multi-channel WAV files are downmixed to mono on load (the voice
// manager mixes/pans in its own stereo stage; a second input channel here
// would be redundant).
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Library is a read-only mapping from sample name to an ordered sequence of
// buffers, immutable once loaded so voices may hold buffer references
// without locking (spec §5 "Sample buffers are immutable once loaded").
type Library struct {
	entries map[string][]Buffer
}

// NewInMemory builds a Library directly from pre-decoded buffers, bypassing
// the disk scan — used by graph/render tests and by callers assembling a
// library from a source other than a directory tree.
func NewInMemory(entries map[string][]Buffer) *Library {
	return &Library{entries: entries}
}

// Get returns the (index mod len) buffer for name, or (Buffer{}, false) if
// name is unknown or has no buffers.
func (l *Library) Get(name string, index int) (Buffer, bool) {
	bufs, ok := l.entries[name]
	if !ok || len(bufs) == 0 {
		return Buffer{}, false
	}
	i := index % len(bufs)
	if i < 0 {
		i += len(bufs)
	}
	return bufs[i], true
}

// Names returns the sample names present in the library, for diagnostics
// (the engine's reference-error warnings, spec §7 kind 2).
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.entries))
	for n := range l.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load walks root, treating each direct subdirectory as a sample name and
// each *.wav file inside it (sorted lexicographically) as one indexed
// buffer. Decode failures on an individual file are collected and returned
// alongside whatever did load successfully, matching the engine's policy of
// degrading gracefully rather than failing the whole library over one bad
// file.
func Load(root string) (*Library, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("samplelib: reading %s: %w", root, err)
	}

	lib := &Library{entries: make(map[string][]Buffer)}
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		dir := filepath.Join(root, name)
		files, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("samplelib: reading %s: %w", dir, err))
			continue
		}
		var wavNames []string
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if filepath.Ext(f.Name()) == ".wav" || filepath.Ext(f.Name()) == ".WAV" {
				wavNames = append(wavNames, f.Name())
			}
		}
		sort.Strings(wavNames)

		var bufs []Buffer
		for _, fname := range wavNames {
			buf, err := decodeFile(filepath.Join(dir, fname))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			bufs = append(bufs, buf)
		}
		if len(bufs) > 0 {
			lib.entries[name] = bufs
		}
	}

	if len(errs) > 0 {
		return lib, fmt.Errorf("samplelib: %d file(s) failed to decode: %w", len(errs), errs[0])
	}
	return lib, nil
}

func decodeFile(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("samplelib: opening %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("samplelib: decoding %s: %w", path, err)
	}
	if !dec.WasPCMAccessed() {
		return Buffer{}, fmt.Errorf("samplelib: %s: no PCM data", path)
	}

	return Buffer{Samples: downmixToMono(buf), SampleRate: int(dec.SampleRate)}, nil
}

// downmixToMono averages interleaved channels into a single float32 buffer
// scaled to [-1,1] from the source's integer bit depth.
func downmixToMono(buf *audio.IntBuffer) []float32 {
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	maxVal := float32(int(1) << uint(buf.SourceBitDepth-1))
	if buf.SourceBitDepth <= 0 {
		maxVal = 32768
	}

	n := len(buf.Data) / ch
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Data[i*ch+c]) / maxVal
		}
		out[i] = sum / float32(ch)
	}
	return out
}

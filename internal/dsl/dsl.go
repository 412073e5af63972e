package dsl

import (
	"github.com/cklabs/phonon/internal/graph"
	"github.com/cklabs/phonon/internal/samplelib"
)

// GraphBuildFunc returns a closure with the shape internal/live.BuildFunc
// expects: a compiled program's *graph.Graph, built fresh on every call.
// internal/live has no import dependency on internal/dsl (it takes a
// BuildFunc injected by the caller); cmd/phonon is what wires this
// function in as that injection point.
func GraphBuildFunc(lib *samplelib.Library, sampleRate int) func(source string) (*graph.Graph, error) {
	return func(source string) (*graph.Graph, error) {
		c, err := Compile(source, lib, sampleRate)
		if err != nil {
			return nil, err
		}
		return c.Graph, nil
	}
}

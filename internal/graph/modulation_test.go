package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModRouteAddBlendsSourceOntoBase(t *testing.T) {
	g := New(44100, 1)
	base := g.AddNode(&Constant{Value: 1000})
	source := g.AddNode(&Constant{Value: 0.8})
	id := g.AddNode(NewModRoute(ModAdd, Ref(base), Ref(source), Val(500)))
	g.Output = g.AddNode(NewOutput(Ref(id)))

	assert.InDelta(t, 1400, g.ProcessSample(), 1e-3, "1000 + 0.8*500")
}

func TestModRouteMultiplyScalesBase(t *testing.T) {
	g := New(44100, 1)
	base := g.AddNode(&Constant{Value: 100})
	source := g.AddNode(&Constant{Value: 0.5})
	id := g.AddNode(NewModRoute(ModMultiply, Ref(base), Ref(source), Val(50)))
	g.Output = g.AddNode(NewOutput(Ref(id)))

	assert.InDelta(t, 2600, g.ProcessSample(), 1e-3, "100 * (1 + 0.5*50)")
}

func TestModRouteReplaceIgnoresBase(t *testing.T) {
	g := New(44100, 1)
	base := g.AddNode(&Constant{Value: 9999})
	source := g.AddNode(&Constant{Value: 0.5})
	id := g.AddNode(NewModRoute(ModReplace, Ref(base), Ref(source), Val(50)))
	g.Output = g.AddNode(NewOutput(Ref(id)))

	assert.InDelta(t, 25, g.ProcessSample(), 1e-3, "0.5*50, base dropped")
}

func TestModRouteBipolarRecentersSource(t *testing.T) {
	g := New(44100, 1)
	base := g.AddNode(&Constant{Value: 100})
	source := g.AddNode(&Constant{Value: 0.5})
	id := g.AddNode(NewModRoute(ModBipolar, Ref(base), Ref(source), Val(50)))
	g.Output = g.AddNode(NewOutput(Ref(id)))

	assert.InDelta(t, 100, g.ProcessSample(), 1e-3, "source 0.5 recenters to 0, base unchanged")
}

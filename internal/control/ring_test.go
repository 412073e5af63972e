package control_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cklabs/phonon/internal/control"
)

func TestPushThenDrainReturnsInOrder(t *testing.T) {
	r := control.NewRing(4)
	assert.True(t, r.Push(control.Write{Name: "a", Value: 1}))
	assert.True(t, r.Push(control.Write{Name: "b", Value: 2}))

	out := r.Drain(nil)
	assert.Equal(t, []control.Write{{Name: "a", Value: 1}, {Name: "b", Value: 2}}, out)
}

func TestDrainIsEmptyAfterFullyDrained(t *testing.T) {
	r := control.NewRing(4)
	r.Push(control.Write{Name: "a", Value: 1})
	r.Drain(nil)

	out := r.Drain(nil)
	assert.Empty(t, out)
}

func TestPushFailsWhenRingIsFull(t *testing.T) {
	r := control.NewRing(2) // rounds up to capacity 2
	assert.True(t, r.Push(control.Write{Name: "a", Value: 1}))
	assert.True(t, r.Push(control.Write{Name: "b", Value: 2}))
	assert.False(t, r.Push(control.Write{Name: "c", Value: 3}))
}

func TestDrainFreesCapacityForFurtherPushes(t *testing.T) {
	r := control.NewRing(2)
	r.Push(control.Write{Name: "a", Value: 1})
	r.Push(control.Write{Name: "b", Value: 2})
	r.Drain(nil)

	assert.True(t, r.Push(control.Write{Name: "c", Value: 3}))
	out := r.Drain(nil)
	assert.Equal(t, []control.Write{{Name: "c", Value: 3}}, out)
}

func TestDrainAppendsToProvidedBuffer(t *testing.T) {
	r := control.NewRing(4)
	r.Push(control.Write{Name: "a", Value: 1})

	existing := []control.Write{{Name: "prior", Value: 0}}
	out := r.Drain(existing)
	assert.Equal(t, []control.Write{{Name: "prior", Value: 0}, {Name: "a", Value: 1}}, out)
}

func TestCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	r := control.NewRing(3)
	// Capacity rounds to 4: four pushes should all succeed.
	for i := 0; i < 4; i++ {
		assert.True(t, r.Push(control.Write{Name: "x", Value: float64(i)}))
	}
	assert.False(t, r.Push(control.Write{Name: "overflow", Value: 99}))
}

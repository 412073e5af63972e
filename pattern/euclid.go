package pattern

import "github.com/cklabs/phonon/rational"

// Bjorklund distributes `hits` pulses as evenly as possible across `steps`
// slots using Bjorklund's algorithm (the same one underlying the Euclidean
// rhythms of TidalCycles/Clave theory). Returns a slice of length steps of
// true/false pulses, unrotated.
func Bjorklund(hits, steps int) []bool {
	if steps <= 0 {
		return nil
	}
	if hits <= 0 {
		return make([]bool, steps)
	}
	if hits >= steps {
		out := make([]bool, steps)
		for i := range out {
			out[i] = true
		}
		return out
	}

	// Build `hits` groups of [true] and `steps-hits` groups of [false], then
	// repeatedly fold the tail groups into the head groups until at most one
	// tail group remains.
	a := make([][]bool, hits)
	for i := range a {
		a[i] = []bool{true}
	}
	b := make([][]bool, steps-hits)
	for i := range b {
		b[i] = []bool{false}
	}

	for len(b) > 1 {
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		newA := make([][]bool, 0, n)
		for i := 0; i < n; i++ {
			newA = append(newA, append(append([]bool{}, a[i]...), b[i]...))
		}
		var newB [][]bool
		if len(a) > n {
			newB = a[n:]
		} else {
			newB = b[n:]
		}
		a, b = newA, newB
	}

	out := make([]bool, 0, steps)
	for _, g := range a {
		out = append(out, g...)
	}
	for _, g := range b {
		out = append(out, g...)
	}
	return out
}

// rotate returns pulses rotated left by r slots (r may be negative).
func rotatePulses(pulses []bool, r int) []bool {
	n := len(pulses)
	if n == 0 {
		return pulses
	}
	r = ((r % n) + n) % n
	out := make([]bool, n)
	for i := range pulses {
		out[i] = pulses[(i+r)%n]
	}
	return out
}

// Euclid builds a bool Pattern emitting `hits` pulses distributed maximally
// evenly across `steps` equal subdivisions of the cycle, rotated left by
// `rotation` steps (spec §4.1.2).
func Euclid(hits, steps, rotation int) Pattern[bool] {
	if steps <= 0 {
		return Silence[bool]()
	}
	pulses := rotatePulses(Bjorklund(hits, steps), rotation)
	return FromAtoms(pulses)
}

// EuclidNamed realizes the mini-notation "a(k,n,r)" form: the euclidean
// trigger pattern with every true pulse mapped to v (false pulses dropped).
func EuclidNamed[T any](v T, hits, steps, rotation int) Pattern[T] {
	trig := Euclid(hits, steps, rotation)
	return Fmap(Filter(trig, func(b bool) bool { return b }), func(bool) T { return v })
}

// EuclidP is the patterned-argument form: hits/steps/rotation may each be
// float patterns, sampled once per cycle start per the spec's parameter
// policy (§4.1.2, §9).
func EuclidP(hitsP, stepsP, rotP Pattern[float64]) Pattern[bool] {
	return Pattern[bool]{Query: func(s State) []Hap[bool] {
		var out []Hap[bool]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.FloorInt()
			h := int(sampleAtCycleStart(hitsP, cyc, s.Controls))
			n := int(sampleAtCycleStart(stepsP, cyc, s.Controls))
			r := int(sampleAtCycleStart(rotP, cyc, s.Controls))
			out = append(out, Euclid(h, n, r).Query(s.WithSpan(sub))...)
		}
		return out
	}}
}

package pattern

// Every random combinator derives its state purely from (cycle index,
// combinator salt, event index) via a splitmix64-style hash — never from a
// shared PRNG — so that replaying the same cycle on a reloaded graph
// produces identical events (spec §3.2, §4.1.3).
const (
	saltDegrade   = 0x9E3779B97F4A7C15
	saltSometimes = 0xC2B2AE3D27D4EB4F
)

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// randFloat returns a deterministic pseudo-random value in [0,1) derived
// from the triple (cycle, salt, index).
func randFloat(cycle int64, salt int64, index int64) float64 {
	h := splitmix64(uint64(cycle))
	h = splitmix64(h ^ uint64(salt))
	h = splitmix64(h ^ uint64(index))
	return float64(h>>11) / float64(1<<53)
}

// DegradeBy drops each Hap with deterministic probability prob, seeded from
// the Hap's cycle index XOR the degrade salt.
func DegradeBy[T any](prob float64, p Pattern[T]) Pattern[T] {
	return degradeBySalt(prob, saltDegrade, p)
}

func degradeBySalt[T any](prob float64, salt int64, p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], 0, len(in))
		for i, h := range in {
			r := randFloat(h.Part.Begin.FloorInt(), salt, int64(i))
			if r >= prob {
				out = append(out, h)
			}
		}
		return out
	}}
}

func undegradeBySalt[T any](prob float64, salt int64, p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], 0, len(in))
		for i, h := range in {
			r := randFloat(h.Part.Begin.FloorInt(), salt, int64(i))
			if r < prob {
				out = append(out, h)
			}
		}
		return out
	}}
}

// SometimesBy applies f to a deterministic prob-fraction of events and
// leaves the rest untouched; sometimes/rarely/often are fixed-probability
// specializations (spec §4.1.2).
func SometimesBy[T any](prob float64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	unaffected := degradeBySalt(prob, saltSometimes, p)
	affected := undegradeBySalt(prob, saltSometimes, p)
	return Stack([]Pattern[T]{unaffected, f(affected)})
}

func Sometimes[T any](f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return SometimesBy(0.5, f, p)
}

func Rarely[T any](f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return SometimesBy(0.25, f, p)
}

func Often[T any](f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return SometimesBy(0.75, f, p)
}

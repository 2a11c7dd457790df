// Package prng implements the seeded generator that feeds every simulation.
//
// The generator is mulberry32: a 32-bit state advanced by a fixed odd
// increment and passed through two xor-shift/multiply rounds. It is fast and
// reproducible, which is all a teaching simulator needs. It is not
// cryptographically secure and makes no statistical-quality claims.
package prng

// increment is the odd Weyl-sequence step added to the state on every draw.
const increment uint32 = 0x6D2B79F5

// scale maps a uint32 onto [0, 1).
const scale = 1 << 32

// Generator produces a deterministic stream of uniforms from a uint32 seed.
//
// A Generator is owned by a single trial source and is not safe for
// concurrent use. Reseeding means constructing a new Generator.
type Generator struct {
	seed  uint32
	state uint32
}

// New returns a generator seeded with seed.
func New(seed uint32) *Generator {
	return &Generator{seed: seed, state: seed}
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() uint32 {
	return g.seed
}

// Uint32 returns the next raw 32-bit output.
func (g *Generator) Uint32() uint32 {
	g.state += increment
	t := g.state
	r := (t ^ (t >> 15)) * (t | 1)
	r ^= r + (r^(r>>7))*(r|61)
	return r ^ (r >> 14)
}

// Float64 returns the next value in [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) / scale
}

package engine

import "github.com/louisbranch/simlab/internal/sim/prng"

// Combine folds an epoch into a source's base constant.
type Combine int

const (
	// CombineAdd yields base + epoch.
	CombineAdd Combine = iota
	// CombineXorShift yields base ^ (epoch << 1).
	CombineXorShift
	// CombineAddHalf yields base + (epoch >> 1).
	CombineAddHalf
)

// String returns the name used in reports and traces.
func (c Combine) String() string {
	switch c {
	case CombineAdd:
		return "add"
	case CombineXorShift:
		return "xor-shift"
	case CombineAddHalf:
		return "add-half"
	default:
		return "unknown"
	}
}

// Source is a named randomness stream of a model.
type Source struct {
	Name    string
	Base    uint32
	Combine Combine
}

// Seed derives the seed of this source for one trial. Arithmetic wraps at 2^32.
func (s Source) Seed(epoch uint32, trial int) uint32 {
	var mixed uint32
	switch s.Combine {
	case CombineXorShift:
		mixed = s.Base ^ (epoch << 1)
	case CombineAddHalf:
		mixed = s.Base + (epoch >> 1)
	default:
		mixed = s.Base + epoch
	}
	return mixed + uint32(trial)
}

// Seeds derives the seed of every source for one trial, in source order.
func Seeds(sources []Source, epoch uint32, trial int) []uint32 {
	seeds := make([]uint32, len(sources))
	for i, src := range sources {
		seeds[i] = src.Seed(epoch, trial)
	}
	return seeds
}

// Streams holds one generator per source, indexed like Model.Sources.
type Streams []*prng.Generator

func newStreams(seeds []uint32) Streams {
	streams := make(Streams, len(seeds))
	for i, seed := range seeds {
		streams[i] = prng.New(seed)
	}
	return streams
}

// Draw returns the next uniform from source i.
func (s Streams) Draw(i int) float64 {
	return s[i].Float64()
}

// Package congruential generates linear and multiplicative congruential
// sequences, the classroom recurrences that precede the seeded generator.
//
// Both methods emit one row past the requested length so the repetition of
// the sequence is visible in the last row.
package congruential

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
)

// MaxRows bounds how many rows a single sequence may produce.
const MaxRows = 1 << 16

// MaxMagnitude bounds seeds, multipliers, increments and moduli so every
// value stays exact when carried as a JSON or protobuf double.
const MaxMagnitude = 1 << 53

// maxExponent keeps m = 2^g within MaxMagnitude.
const maxExponent = 53

// Method identifies the recurrence that produced a sequence.
type Method string

const (
	MethodLinear         Method = "linear"
	MethodMultiplicative Method = "multiplicative"
)

// Row is one step of the recurrence.
type Row struct {
	Index     int     `json:"index"`
	Prev      int64   `json:"prev"`
	Operation string  `json:"operation"`
	Value     int64   `json:"value"`
	Ratio     float64 `json:"ratio"`
	// Repeat marks the extra row that shows the sequence wrapping around.
	Repeat bool `json:"repeat,omitempty"`
}

// Sequence is the full output of one method invocation.
type Sequence struct {
	Method     Method    `json:"method"`
	Seed       int64     `json:"seed"`
	Multiplier int64     `json:"multiplier"`
	Increment  int64     `json:"increment"`
	Modulus    int64     `json:"modulus"`
	Exponent   int       `json:"exponent"`
	Rows       []Row     `json:"rows"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// Period returns the number of steps until a value repeats, or 0 if no value
// repeats within the emitted rows. The seed counts as the first seen value.
func (s Sequence) Period() int {
	seen := make(map[int64]int, len(s.Rows)+1)
	seen[normalize(s.Seed, s.Modulus)] = 0
	for _, row := range s.Rows {
		if at, ok := seen[row.Value]; ok {
			return row.Index - at
		}
		seen[row.Value] = row.Index
	}
	return 0
}

// LinearParams configures the linear method.
type LinearParams struct {
	Seed      int64  // X0
	Increment int64  // c
	Modulus   int64  // m, also P
	K         *int64 // derives a = 1 + 4k when Multiplier is nil
	// Multiplier overrides the derived multiplier.
	Multiplier *int64
}

// Validate reports whether the parameters are ready to compute.
func (p LinearParams) Validate() error {
	if p.Multiplier == nil && p.K == nil {
		return missing("a|k")
	}
	if m := max(2, p.Modulus); m+1 > MaxRows {
		return outOfRange("m", fmt.Sprintf("at most %d", MaxRows-1))
	}
	return firstError(
		magnitude("x0", p.Seed, MaxMagnitude),
		magnitude("c", p.Increment, MaxMagnitude),
		optionalMagnitude("a", p.Multiplier, MaxMagnitude),
		optionalMagnitude("k", p.K, (MaxMagnitude-1)/4),
	)
}

// Linear computes X[i] = (a*X[i-1] + c) mod m for m+1 rows.
func Linear(p LinearParams) (Sequence, error) {
	if err := p.Validate(); err != nil {
		return Sequence{}, err
	}
	m := max(2, p.Modulus)
	a := linearMultiplier(p)
	seq := Sequence{
		Method:     MethodLinear,
		Seed:       p.Seed,
		Multiplier: a,
		Increment:  p.Increment,
		Modulus:    m,
		Exponent:   int(math.Round(math.Log2(float64(m)))),
	}
	seq.Rows = generate(p.Seed, a, p.Increment, m, int(m)+1, func(prev int64) string {
		return "(" + itoa(a) + " * " + itoa(prev) + " + " + itoa(p.Increment) + ") MOD(" + itoa(m) + ")"
	})
	seq.Warnings = linearWarnings(a, p.Increment, m)
	return seq, nil
}

func linearMultiplier(p LinearParams) int64 {
	if p.Multiplier != nil {
		return *p.Multiplier
	}
	return 1 + 4*(*p.K)
}

// MultiplicativeParams configures the multiplicative method.
type MultiplicativeParams struct {
	Seed  int64 // X0
	Count int   // D
	K     *int64
	// Formula selects 3+8k or 5+8k. Zero means 3.
	Formula    int
	Multiplier *int64
	// Exponent is g in m = 2^g; nil derives ceil(log2(D)) + 2.
	Exponent *int
}

// Validate reports whether the parameters are ready to compute.
func (p MultiplicativeParams) Validate() error {
	if p.Multiplier == nil && p.K == nil {
		return missing("a|k")
	}
	switch p.Formula {
	case 0, 3, 5:
	default:
		return outOfRange("formula", "3 or 5")
	}
	if max(1, p.Count)+1 > MaxRows {
		return outOfRange("d", fmt.Sprintf("at most %d", MaxRows-1))
	}
	if p.Exponent != nil && *p.Exponent > maxExponent {
		return outOfRange("g", fmt.Sprintf("at most %d", maxExponent))
	}
	return firstError(
		magnitude("x0", p.Seed, MaxMagnitude),
		optionalMagnitude("a", p.Multiplier, MaxMagnitude),
		optionalMagnitude("k", p.K, (MaxMagnitude-5)/8),
	)
}

func magnitude(param string, v, limit int64) error {
	if v < -limit || v > limit {
		return outOfRange(param, fmt.Sprintf("between -%d and %d", limit, limit))
	}
	return nil
}

func optionalMagnitude(param string, v *int64, limit int64) error {
	if v == nil {
		return nil
	}
	return magnitude(param, *v, limit)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Multiplicative computes X[i] = (a*X[i-1]) mod 2^g for D+1 rows.
func Multiplicative(p MultiplicativeParams) (Sequence, error) {
	if err := p.Validate(); err != nil {
		return Sequence{}, err
	}
	d := max(1, p.Count)
	a := multiplicativeMultiplier(p)
	g := multiplicativeExponent(p.Exponent, d)
	m := int64(1) << g
	seq := Sequence{
		Method:     MethodMultiplicative,
		Seed:       p.Seed,
		Multiplier: a,
		Modulus:    m,
		Exponent:   g,
	}
	seq.Rows = generate(p.Seed, a, 0, m, d+1, func(prev int64) string {
		return "(" + itoa(a) + " * " + itoa(prev) + ") MOD(" + itoa(m) + ")"
	})
	seq.Warnings = multiplicativeWarnings(p.Seed, a)
	return seq, nil
}

func multiplicativeMultiplier(p MultiplicativeParams) int64 {
	if p.Multiplier != nil {
		return *p.Multiplier
	}
	base := int64(3)
	if p.Formula == 5 {
		base = 5
	}
	return base + 8*(*p.K)
}

func multiplicativeExponent(given *int, d int) int {
	g := 0
	if given != nil {
		g = *given
	} else {
		g = int(math.Ceil(math.Log2(float64(d)))) + 2
	}
	return max(3, g)
}

func generate(x0, a, c, m int64, total int, op func(prev int64) string) []Row {
	rows := make([]Row, 0, total)
	prev := x0
	for i := 1; i <= total; i++ {
		x := step(a, prev, c, m)
		ratio := 0.0
		if m > 1 {
			ratio = float64(x) / float64(m-1)
		}
		rows = append(rows, Row{
			Index:     i,
			Prev:      prev,
			Operation: op(prev),
			Value:     x,
			Ratio:     ratio,
			Repeat:    i == total,
		})
		prev = x
	}
	return rows
}

// step returns (a*x + c) mod m without overflowing for any m below 2^63.
func step(a, x, c, m int64) int64 {
	um := uint64(m)
	ua := uint64(normalize(a, m))
	ux := uint64(normalize(x, m))
	hi, lo := bits.Mul64(ua, ux)
	_, rem := bits.Div64(hi%um, lo, um)
	return int64((rem + uint64(normalize(c, m))) % um)
}

func normalize(v, m int64) int64 {
	if m <= 0 {
		return v
	}
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func missing(param string) error {
	return apperrors.WithMetadata(apperrors.CodeParamMissing,
		fmt.Sprintf("parameter %s is required", param),
		map[string]string{"Param": param})
}

func outOfRange(param, constraint string) error {
	return apperrors.WithMetadata(apperrors.CodeParamOutOfRange,
		fmt.Sprintf("parameter %s must be %s", param, constraint),
		map[string]string{"Param": param, "Constraint": constraint})
}

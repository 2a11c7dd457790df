package congruential

import "fmt"

// WarningCode identifies an advisory condition on a sequence.
type WarningCode string

const (
	// WarnSeedEven flags an even X0 for the multiplicative method.
	WarnSeedEven WarningCode = "seed_even"
	// WarnMultiplierForm flags a multiplier outside the full-period form.
	WarnMultiplierForm WarningCode = "multiplier_form"
	// WarnIncrementNotCoprime flags gcd(c, m) != 1 for the linear method.
	WarnIncrementNotCoprime WarningCode = "increment_not_coprime"
)

// Warning accompanies a computed sequence. It never blocks computation.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

func linearWarnings(a, c, m int64) []Warning {
	var out []Warning
	if gcd(c, m) != 1 {
		out = append(out, Warning{
			Code:    WarnIncrementNotCoprime,
			Message: fmt.Sprintf("c=%d and m=%d share a factor; the period is shorter than m", c, m),
		})
	}
	if normalize(a-1, 4) != 0 {
		out = append(out, Warning{
			Code:    WarnMultiplierForm,
			Message: fmt.Sprintf("a=%d is not of the form 1+4k", a),
		})
	}
	return out
}

func multiplicativeWarnings(x0, a int64) []Warning {
	var out []Warning
	if normalize(x0, 2) == 0 {
		out = append(out, Warning{
			Code:    WarnSeedEven,
			Message: fmt.Sprintf("X0=%d is even; use an odd seed for the maximum period", x0),
		})
	}
	if r := normalize(a, 8); r != 3 && r != 5 {
		out = append(out, Warning{
			Code:    WarnMultiplierForm,
			Message: fmt.Sprintf("a=%d is not of the form 3+8k or 5+8k", a),
		})
	}
	return out
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (s Sequence) hasWarning(code WarningCode) bool {
	for _, w := range s.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

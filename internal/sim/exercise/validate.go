package exercise

import (
	"fmt"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
)

// MaxPeriods bounds the games, hours, days or years of a single trial.
const MaxPeriods = 10_000

// NaN fails every check below because each is written as a negated comparison.

func positive(name string, v float64) error {
	if !(v > 0) {
		return outOfRange(name, "greater than 0")
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if !(v >= 0) {
		return outOfRange(name, "at least 0")
	}
	return nil
}

func atLeast(name string, v, min float64) error {
	if !(v >= min) {
		return outOfRange(name, fmt.Sprintf("at least %g", min))
	}
	return nil
}

func atMost(name string, v, max float64) error {
	if !(v <= max) {
		return outOfRange(name, fmt.Sprintf("at most %g", max))
	}
	return nil
}

// periods checks a trial length against [1, MaxPeriods].
func periods(name string, n int) error {
	return firstError(
		atLeast(name, float64(n), 1),
		atMost(name, float64(n), MaxPeriods),
	)
}

func outOfRange(name, constraint string) error {
	return apperrors.WithMetadata(apperrors.CodeParamOutOfRange,
		fmt.Sprintf("parameter %s must be %s", name, constraint),
		map[string]string{"Param": name, "Constraint": constraint})
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

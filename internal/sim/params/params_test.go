package params

import (
	"encoding/json"
	"testing"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
)

func TestIntTruncates(t *testing.T) {
	v := Values{"a": 7.9, "b": "-3.7", "c": json.Number("12"), "d": int64(4)}
	tcs := []struct {
		name string
		want int64
	}{
		{"a", 7}, {"b", -3}, {"c", 12}, {"d", 4},
	}
	for _, tc := range tcs {
		got, err := v.Int(tc.name)
		if err != nil {
			t.Fatalf("Int(%q) error = %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("Int(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestIntExactForLargeIntegers(t *testing.T) {
	const big = int64(1)<<62 + 1
	v := Values{"n": big, "j": json.Number("4611686018427387905"), "s": " 4611686018427387905 "}
	for _, name := range []string{"n", "j", "s"} {
		got, err := v.Int(name)
		if err != nil {
			t.Fatalf("Int(%q) error = %v", name, err)
		}
		if got != big {
			t.Fatalf("Int(%q) = %d, want %d", name, got, big)
		}
	}
}

func TestMissingAndInvalid(t *testing.T) {
	v := Values{"blank": "  ", "nil": nil, "word": "ten", "bool": true}
	for _, name := range []string{"absent", "blank", "nil"} {
		if _, err := v.Float(name); apperrors.GetCode(err) != apperrors.CodeParamMissing {
			t.Fatalf("Float(%q) error = %v, want %s", name, err, apperrors.CodeParamMissing)
		}
	}
	for _, name := range []string{"word", "bool"} {
		if _, err := v.Float(name); apperrors.GetCode(err) != apperrors.CodeParamOutOfRange {
			t.Fatalf("Float(%q) error = %v, want %s", name, err, apperrors.CodeParamOutOfRange)
		}
	}
	if n, err := v.OptionalInt("absent"); err != nil || n != nil {
		t.Fatalf("OptionalInt(absent) = %v, %v", n, err)
	}
}

func TestDice(t *testing.T) {
	p, err := Dice(Values{"games": "100", "price": 2, "cost7": 5.0})
	if err != nil {
		t.Fatalf("Dice() error = %v", err)
	}
	if p.Games != 100 || p.Price != 2 || p.Cost7 != 5 {
		t.Fatalf("Dice() = %+v", p)
	}
	_, err = Dice(Values{"games": 100, "price": 2})
	if apperrors.GetCode(err) != apperrors.CodeParamMissing {
		t.Fatalf("Dice() without cost7 error = %v", err)
	}
	_, err = Dice(Values{"games": 0, "price": 2, "cost7": 1})
	if apperrors.GetCode(err) != apperrors.CodeParamOutOfRange {
		t.Fatalf("Dice() with zero games error = %v", err)
	}
}

func TestSugar(t *testing.T) {
	p, err := Sugar(Values{
		"mean_demand": 100, "capacity": 700, "order_cost": 100, "holding_cost": 0.1,
		"unit_cost": 3.5, "unit_price": 5, "review_days": 7.2, "days": 27,
	})
	if err != nil {
		t.Fatalf("Sugar() error = %v", err)
	}
	if p.ReviewDays != 7 || p.HoldingCost != 0.1 {
		t.Fatalf("Sugar() = %+v", p)
	}
}

func TestLinear(t *testing.T) {
	p, err := Linear(Values{"x0": 5, "k": 1, "c": 3, "m": 16})
	if err != nil {
		t.Fatalf("Linear() error = %v", err)
	}
	if p.Multiplier != nil || p.K == nil || *p.K != 1 {
		t.Fatalf("Linear() = %+v", p)
	}
	if _, err := Linear(Values{"x0": 5, "c": 3, "m": 16}); apperrors.GetCode(err) != apperrors.CodeParamMissing {
		t.Fatalf("Linear() without a or k error = %v", err)
	}
	if _, err := Linear(Values{"k": 1, "c": 3, "m": 16}); apperrors.GetCode(err) != apperrors.CodeParamMissing {
		t.Fatalf("Linear() without x0 error = %v", err)
	}
}

func TestMultiplicative(t *testing.T) {
	p, err := Multiplicative(Values{"x0": 7, "d": 5, "a": 13, "formula": 5, "g": 8})
	if err != nil {
		t.Fatalf("Multiplicative() error = %v", err)
	}
	if *p.Multiplier != 13 || p.Formula != 5 || *p.Exponent != 8 || p.Count != 5 {
		t.Fatalf("Multiplicative() = %+v", p)
	}
}

func TestDeposits(t *testing.T) {
	fixed, err := FixedDeposit(Values{"capital": 10000, "rate": 5, "years": 1})
	if err != nil {
		t.Fatalf("FixedDeposit() error = %v", err)
	}
	if fixed.RatePercent != 5 {
		t.Fatalf("FixedDeposit() = %+v", fixed)
	}
	if _, err := FixedDeposit(Values{"capital": 10000, "years": 1}); apperrors.GetCode(err) != apperrors.CodeParamMissing {
		t.Fatalf("FixedDeposit() without rate error = %v", err)
	}
	if _, err := VariableDeposit(Values{"capital": -1, "years": 1}); !apperrors.IsConfiguration(err) {
		t.Fatalf("VariableDeposit() error = %v", err)
	}
}

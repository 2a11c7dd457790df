// Package params turns loosely typed parameter maps into typed model
// parameters.
//
// Numbers may arrive as any Go numeric type, json.Number or a numeric string.
// Integer fields are truncated toward zero. A missing required field is a
// PARAM_MISSING error and an unparseable one is PARAM_OUT_OF_RANGE; nothing is
// silently defaulted.
package params

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
)

// Values is a loose parameter map keyed by snake_case names.
type Values map[string]any

// Has reports whether name is present and not nil or blank.
func (v Values) Has(name string) bool {
	raw, ok := v[name]
	if !ok || raw == nil {
		return false
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Float returns a required number.
func (v Values) Float(name string) (float64, error) {
	if !v.Has(name) {
		return 0, missing(name)
	}
	f, ok := toFloat(v[name])
	if !ok {
		return 0, notNumber(name, v[name])
	}
	return f, nil
}

// Int returns a required number truncated to an integer. Integer inputs are
// taken exactly.
func (v Values) Int(name string) (int64, error) {
	switch n := v[name].(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := v.Float(name)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, notNumber(name, v[name])
	}
	return int64(math.Trunc(f)), nil
}

// OptionalInt returns nil when name is absent.
func (v Values) OptionalInt(name string) (*int64, error) {
	if !v.Has(name) {
		return nil, nil
	}
	n, err := v.Int(name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && !math.IsNaN(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f)
	default:
		return 0, false
	}
}

func missing(name string) error {
	return apperrors.WithMetadata(apperrors.CodeParamMissing,
		fmt.Sprintf("parameter %s is required", name),
		map[string]string{"Param": name})
}

func notNumber(name string, raw any) error {
	return apperrors.WithMetadata(apperrors.CodeParamOutOfRange,
		fmt.Sprintf("parameter %s is not a number: %v", name, raw),
		map[string]string{"Param": name, "Constraint": "a number"})
}

// collector gathers the first error across several reads.
type collector struct {
	v   Values
	err error
}

func (c *collector) float(name string) float64 {
	if c.err != nil {
		return 0
	}
	f, err := c.v.Float(name)
	c.err = err
	return f
}

func (c *collector) int(name string) int64 {
	if c.err != nil {
		return 0
	}
	n, err := c.v.Int(name)
	c.err = err
	return n
}

func (c *collector) optionalInt(name string) *int64 {
	if c.err != nil {
		return nil
	}
	n, err := c.v.OptionalInt(name)
	c.err = err
	return n
}

// FixedDeposit reads capital, rate and years.
func FixedDeposit(v Values) (exercise.FixedDepositParams, error) {
	c := collector{v: v}
	p := exercise.FixedDepositParams{
		Capital:     c.float("capital"),
		RatePercent: c.float("rate"),
		Years:       int(c.int("years")),
	}
	if c.err != nil {
		return exercise.FixedDepositParams{}, c.err
	}
	return p, p.Validate()
}

// VariableDeposit reads capital and years.
func VariableDeposit(v Values) (exercise.VariableDepositParams, error) {
	c := collector{v: v}
	p := exercise.VariableDepositParams{
		Capital: c.float("capital"),
		Years:   int(c.int("years")),
	}
	if c.err != nil {
		return exercise.VariableDepositParams{}, c.err
	}
	return p, p.Validate()
}

// Dice reads games, price and cost7.
func Dice(v Values) (exercise.DiceParams, error) {
	c := collector{v: v}
	p := exercise.DiceParams{
		Games: int(c.int("games")),
		Price: c.float("price"),
		Cost7: c.float("cost7"),
	}
	if c.err != nil {
		return exercise.DiceParams{}, c.err
	}
	return p, p.Validate()
}

// Shop reads hours, unit_cost, unit_price and fixed_cost.
func Shop(v Values) (exercise.ShopParams, error) {
	c := collector{v: v}
	p := exercise.ShopParams{
		Hours:     int(c.int("hours")),
		UnitCost:  c.float("unit_cost"),
		UnitPrice: c.float("unit_price"),
		FixedCost: c.float("fixed_cost"),
	}
	if c.err != nil {
		return exercise.ShopParams{}, c.err
	}
	return p, p.Validate()
}

// EggFarm reads days, egg_price and chicken_price.
func EggFarm(v Values) (exercise.EggFarmParams, error) {
	c := collector{v: v}
	p := exercise.EggFarmParams{
		Days:         int(c.int("days")),
		EggPrice:     c.float("egg_price"),
		ChickenPrice: c.float("chicken_price"),
	}
	if c.err != nil {
		return exercise.EggFarmParams{}, c.err
	}
	return p, p.Validate()
}

// Sugar reads the inventory policy and costs.
func Sugar(v Values) (exercise.SugarParams, error) {
	c := collector{v: v}
	p := exercise.SugarParams{
		MeanDemand:  c.float("mean_demand"),
		Capacity:    c.float("capacity"),
		OrderCost:   c.float("order_cost"),
		HoldingCost: c.float("holding_cost"),
		UnitCost:    c.float("unit_cost"),
		UnitPrice:   c.float("unit_price"),
		ReviewDays:  int(c.int("review_days")),
		Days:        int(c.int("days")),
	}
	if c.err != nil {
		return exercise.SugarParams{}, c.err
	}
	return p, p.Validate()
}

// Linear reads x0, c, m and either a or k.
func Linear(v Values) (congruential.LinearParams, error) {
	c := collector{v: v}
	p := congruential.LinearParams{
		Seed:       c.int("x0"),
		Increment:  c.int("c"),
		Modulus:    c.int("m"),
		K:          c.optionalInt("k"),
		Multiplier: c.optionalInt("a"),
	}
	if c.err != nil {
		return congruential.LinearParams{}, c.err
	}
	return p, p.Validate()
}

// Multiplicative reads x0, d, either a or k, and the optional formula and g.
func Multiplicative(v Values) (congruential.MultiplicativeParams, error) {
	c := collector{v: v}
	p := congruential.MultiplicativeParams{
		Seed:       c.int("x0"),
		Count:      int(c.int("d")),
		K:          c.optionalInt("k"),
		Multiplier: c.optionalInt("a"),
	}
	if formula := c.optionalInt("formula"); formula != nil {
		p.Formula = int(*formula)
	}
	if g := c.optionalInt("g"); g != nil {
		exp := int(*g)
		p.Exponent = &exp
	}
	if c.err != nil {
		return congruential.MultiplicativeParams{}, c.err
	}
	return p, p.Validate()
}

package exercise

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
)

// Kind names a model.
type Kind string

const (
	KindDepositFixed    Kind = "deposit_fixed"
	KindDepositVariable Kind = "deposit_variable"
	KindDice            Kind = "dice"
	KindShop            Kind = "shop"
	KindEggFarm         Kind = "egg_farm"
	KindSugar           Kind = "sugar"
)

// Kinds lists every model in display order.
var Kinds = []Kind{
	KindDepositFixed,
	KindDepositVariable,
	KindDice,
	KindShop,
	KindEggFarm,
	KindSugar,
}

// Stochastic reports whether the kind runs through the trial engine.
func (k Kind) Stochastic() bool {
	switch k {
	case KindDice, KindShop, KindEggFarm, KindSugar:
		return true
	default:
		return false
	}
}

// ParseKind accepts a kind name, ignoring case and treating dashes as underscores.
func ParseKind(s string) (Kind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", apperrors.WithMetadata(apperrors.CodeModelUnknown,
		fmt.Sprintf("unknown model %q", s),
		map[string]string{"Model": s})
}

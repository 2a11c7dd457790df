// Package exercise defines the classroom simulation models.
//
// Deposits are deterministic recurrences. Dice, shop, egg farm and sugar
// inventory are stochastic models driven by the trial engine; each declares
// its randomness sources, its period count, its per-period transition and the
// summary it reduces to. Params types validate into ready-to-run models.
package exercise

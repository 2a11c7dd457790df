package exercise

import (
	"math"

	"github.com/louisbranch/simlab/internal/sim/engine"
)

const (
	diceFirst = iota
	diceSecond
)

var diceSources = []engine.Source{
	diceFirst:  {Name: "die1", Base: 1234, Combine: engine.CombineAdd},
	diceSecond: {Name: "die2", Base: 9876, Combine: engine.CombineXorShift},
}

// DiceParams configures the two-dice game run by the house.
type DiceParams struct {
	Games int     // NMJ
	Price float64 // PUJ, collected when the sum is not 7
	Cost7 float64 // CUS7, paid out when the sum is 7
}

// DefaultDiceParams returns the classroom defaults.
func DefaultDiceParams() DiceParams {
	return DiceParams{Games: 100, Price: 2, Cost7: 5}
}

// Validate reports whether the game is ready to simulate.
func (p DiceParams) Validate() error {
	return firstError(
		periods("games", p.Games),
		nonNegative("price", p.Price),
		nonNegative("cost7", p.Cost7),
	)
}

// DiceRow is one game.
type DiceRow struct {
	Game      int     `json:"game"`
	HouseGain float64 `json:"house_gain"`
	U1        float64 `json:"u1"`
	U2        float64 `json:"u2"`
	Die1      int     `json:"die1"`
	Die2      int     `json:"die2"`
	Sum       int     `json:"sum"`
	HouseWins int     `json:"house_wins"`
}

// DiceSummary holds the house totals for one trial.
type DiceSummary struct {
	HouseGain  float64 `json:"house_gain"`
	HouseWins  int     `json:"house_wins"`
	WinPercent float64 `json:"win_percent"`
}

// Metrics implements engine.Summary.
func (s DiceSummary) Metrics() []engine.Metric {
	return []engine.Metric{
		{Name: "house_gain", Value: s.HouseGain},
		{Name: "house_wins", Value: float64(s.HouseWins)},
		{Name: "win_percent", Value: s.WinPercent},
	}
}

type diceState struct {
	gain float64
	wins int
}

// Dice is the dice game model.
type Dice struct {
	p DiceParams
}

// NewDice validates p and returns the model.
func NewDice(p DiceParams) (Dice, error) {
	if err := p.Validate(); err != nil {
		return Dice{}, err
	}
	return Dice{p: p}, nil
}

// Name implements engine.Model.
func (Dice) Name() string {
	return string(KindDice)
}

// Sources implements engine.Model.
func (Dice) Sources() []engine.Source {
	return diceSources
}

// Periods implements engine.Model.
func (d Dice) Periods() int {
	return d.p.Games
}

// Init implements engine.Model.
func (Dice) Init() diceState {
	return diceState{}
}

// Step implements engine.Model.
func (d Dice) Step(game int, st diceState, streams engine.Streams) (diceState, DiceRow) {
	u1 := streams.Draw(diceFirst)
	u2 := streams.Draw(diceSecond)
	d1, d2 := DieFace(u1), DieFace(u2)
	if d1+d2 == 7 {
		st.gain += d.p.Price - d.p.Cost7
	} else {
		st.gain += d.p.Price
		st.wins++
	}
	return st, DiceRow{
		Game:      game,
		HouseGain: st.gain,
		U1:        u1,
		U2:        u2,
		Die1:      d1,
		Die2:      d2,
		Sum:       d1 + d2,
		HouseWins: st.wins,
	}
}

// Summarize implements engine.Model.
func (d Dice) Summarize(st diceState) DiceSummary {
	return DiceSummary{
		HouseGain:  st.gain,
		HouseWins:  st.wins,
		WinPercent: float64(st.wins) / float64(d.p.Games) * 100,
	}
}

// DieFace maps a uniform onto a face in [1, 6].
func DieFace(u float64) int {
	return min(6, max(1, int(math.Round(1+5*u))))
}

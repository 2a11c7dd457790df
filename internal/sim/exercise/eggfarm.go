package exercise

import "github.com/louisbranch/simlab/internal/sim/engine"

const (
	eggLaying = iota
	eggOutcome
	eggSurvival
)

var eggSources = []engine.Source{
	eggLaying:   {Name: "eggs", Base: 13579, Combine: engine.CombineAdd},
	eggOutcome:  {Name: "outcome", Base: 24680, Combine: engine.CombineXorShift},
	eggSurvival: {Name: "survival", Base: 86420, Combine: engine.CombineAddHalf},
}

const (
	probBroken  = 0.20
	probHatch   = 0.30
	probSurvive = 0.80

	// EggFarmOverhead is subtracted once from the trial revenue.
	EggFarmOverhead = 300.0
)

// layingThresholds is a Poisson(1) truncated at four eggs.
var layingThresholds = []float64{0.37, 0.74, 0.92, 0.98}

// EggFarmParams configures the hen model.
type EggFarmParams struct {
	Days         int     // NMD
	EggPrice     float64 // PVUH
	ChickenPrice float64 // PVUP
}

// DefaultEggFarmParams returns the classroom defaults.
func DefaultEggFarmParams() EggFarmParams {
	return EggFarmParams{Days: 30, EggPrice: 1.5, ChickenPrice: 5.0}
}

// Validate reports whether the farm is ready to simulate.
func (p EggFarmParams) Validate() error {
	return firstError(
		periods("days", p.Days),
		nonNegative("egg_price", p.EggPrice),
		nonNegative("chicken_price", p.ChickenPrice),
	)
}

// EggFarmRow is one day at the farm.
type EggFarmRow struct {
	Day               int     `json:"day"`
	Laid              int     `json:"laid"`
	Broken            int     `json:"broken"`
	EggsSold          int     `json:"eggs_sold"`
	ChickensSold      int     `json:"chickens_sold"`
	Revenue           float64 `json:"revenue"`
	CumulativeRevenue float64 `json:"cumulative_revenue"`
}

// EggFarmSummary holds the totals for one trial.
type EggFarmSummary struct {
	Broken       int     `json:"broken"`
	EggsSold     int     `json:"eggs_sold"`
	ChickensSold int     `json:"chickens_sold"`
	Revenue      float64 `json:"revenue"`
	NetRevenue   float64 `json:"net_revenue"`
	DailyAverage float64 `json:"daily_average"`
}

// Metrics implements engine.Summary.
func (s EggFarmSummary) Metrics() []engine.Metric {
	return []engine.Metric{
		{Name: "broken", Value: float64(s.Broken)},
		{Name: "eggs_sold", Value: float64(s.EggsSold)},
		{Name: "chickens_sold", Value: float64(s.ChickensSold)},
		{Name: "revenue", Value: s.Revenue},
		{Name: "net_revenue", Value: s.NetRevenue},
		{Name: "daily_average", Value: s.DailyAverage},
	}
}

type eggState struct {
	broken   int
	eggs     int
	chickens int
	revenue  float64
}

// EggFarm is the egg laying model.
type EggFarm struct {
	p EggFarmParams
}

// NewEggFarm validates p and returns the model.
func NewEggFarm(p EggFarmParams) (EggFarm, error) {
	if err := p.Validate(); err != nil {
		return EggFarm{}, err
	}
	return EggFarm{p: p}, nil
}

// Name implements engine.Model.
func (EggFarm) Name() string {
	return string(KindEggFarm)
}

// Sources implements engine.Model.
func (EggFarm) Sources() []engine.Source {
	return eggSources
}

// Periods implements engine.Model.
func (f EggFarm) Periods() int {
	return f.p.Days
}

// Init implements engine.Model.
func (EggFarm) Init() eggState {
	return eggState{}
}

// Step implements engine.Model.
func (f EggFarm) Step(day int, st eggState, streams engine.Streams) (eggState, EggFarmRow) {
	row := EggFarmRow{Day: day, Laid: EggsLaid(streams.Draw(eggLaying))}
	for range row.Laid {
		u := streams.Draw(eggOutcome)
		switch {
		case u < probBroken:
			row.Broken++
		case u < probBroken+probHatch:
			// Only hatchlings that survive are sold.
			if streams.Draw(eggSurvival) < probSurvive {
				row.ChickensSold++
				row.Revenue += f.p.ChickenPrice
			}
		default:
			row.EggsSold++
			row.Revenue += f.p.EggPrice
		}
	}

	st.broken += row.Broken
	st.eggs += row.EggsSold
	st.chickens += row.ChickensSold
	st.revenue += row.Revenue
	row.CumulativeRevenue = st.revenue
	return st, row
}

// Summarize implements engine.Model.
func (f EggFarm) Summarize(st eggState) EggFarmSummary {
	return EggFarmSummary{
		Broken:       st.broken,
		EggsSold:     st.eggs,
		ChickensSold: st.chickens,
		Revenue:      st.revenue,
		NetRevenue:   st.revenue - EggFarmOverhead,
		DailyAverage: st.revenue / float64(f.p.Days),
	}
}

// EggsLaid maps a uniform onto 0 to 4 eggs.
func EggsLaid(u float64) int {
	for k, t := range layingThresholds {
		if u < t {
			return k
		}
	}
	return len(layingThresholds)
}

package exercise

import (
	"math"

	"github.com/louisbranch/simlab/internal/sim/engine"
)

const (
	sugarDemand = iota
	sugarLead
)

var sugarSources = []engine.Source{
	sugarDemand: {Name: "demand", Base: 202407, Combine: engine.CombineAdd},
	sugarLead:   {Name: "lead_time", Base: 99013, Combine: engine.CombineXorShift},
}

// unmetTolerance is the unmet demand still counted as capacity sufficient.
const unmetTolerance = 1e-6

// SugarParams configures the periodic review inventory.
type SugarParams struct {
	MeanDemand  float64 // kg per day
	Capacity    float64 // kg
	OrderCost   float64 // per order
	HoldingCost float64 // per kg per day
	UnitCost    float64 // acquisition per kg
	UnitPrice   float64 // sale per kg
	ReviewDays  int     // K
	Days        int
}

// DefaultSugarParams returns the classroom defaults.
func DefaultSugarParams() SugarParams {
	return SugarParams{
		MeanDemand:  100,
		Capacity:    700,
		OrderCost:   100,
		HoldingCost: 0.1,
		UnitCost:    3.5,
		UnitPrice:   5.0,
		ReviewDays:  7,
		Days:        27,
	}
}

// Validate reports whether the inventory is ready to simulate.
func (p SugarParams) Validate() error {
	return firstError(
		positive("mean_demand", p.MeanDemand),
		positive("capacity", p.Capacity),
		nonNegative("order_cost", p.OrderCost),
		nonNegative("holding_cost", p.HoldingCost),
		nonNegative("unit_cost", p.UnitCost),
		nonNegative("unit_price", p.UnitPrice),
		atLeast("review_days", float64(p.ReviewDays), 1),
		periods("days", p.Days),
	)
}

// SugarRow is one day of inventory movement.
type SugarRow struct {
	Day          int     `json:"day"`
	StartStock   float64 `json:"start_stock"`
	Demand       float64 `json:"demand"`
	Sold         float64 `json:"sold"`
	Lost         float64 `json:"lost"`
	Ordered      float64 `json:"ordered"`
	LeadTime     int     `json:"lead_time,omitempty"`
	Arrived      float64 `json:"arrived"`
	EndStock     float64 `json:"end_stock"`
	HoldingCost  float64 `json:"holding_cost"`
	OrderCost    float64 `json:"order_cost"`
	PurchaseCost float64 `json:"purchase_cost"`
	Revenue      float64 `json:"revenue"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalCost    float64 `json:"total_cost"`
	Profit       float64 `json:"profit"`
}

// SugarSummary holds the totals for one trial.
type SugarSummary struct {
	TotalDemand        float64 `json:"total_demand"`
	Unmet              float64 `json:"unmet"`
	Revenue            float64 `json:"revenue"`
	TotalCost          float64 `json:"total_cost"`
	NetProfit          float64 `json:"net_profit"`
	Orders             int     `json:"orders"`
	CapacitySufficient bool    `json:"capacity_sufficient"`
}

// Metrics implements engine.Summary.
func (s SugarSummary) Metrics() []engine.Metric {
	return []engine.Metric{
		{Name: "revenue", Value: s.Revenue},
		{Name: "unmet", Value: s.Unmet},
		{Name: "total_cost", Value: s.TotalCost},
		{Name: "net_profit", Value: s.NetProfit},
		{Name: "orders", Value: float64(s.Orders)},
	}
}

// Satisfied implements engine.Predicate.
func (s SugarSummary) Satisfied() bool { return s.CapacitySufficient }

type sugarState struct {
	stock     float64
	pending   bool
	orderQty  float64
	countdown int

	demand  float64
	unmet   float64
	revenue float64
	cost    float64
	orders  int
}

// Sugar is the sugar inventory model.
type Sugar struct {
	p SugarParams
}

// NewSugar validates p and returns the model.
func NewSugar(p SugarParams) (Sugar, error) {
	if err := p.Validate(); err != nil {
		return Sugar{}, err
	}
	return Sugar{p: p}, nil
}

// Name implements engine.Model.
func (Sugar) Name() string {
	return string(KindSugar)
}

// Sources implements engine.Model.
func (Sugar) Sources() []engine.Source {
	return sugarSources
}

// Periods implements engine.Model.
func (s Sugar) Periods() int {
	return s.p.Days
}

// Init starts with a full warehouse whose purchase is already charged.
func (s Sugar) Init() sugarState {
	return sugarState{stock: s.p.Capacity, cost: s.p.Capacity * s.p.UnitCost}
}

// Step implements engine.Model.
func (s Sugar) Step(day int, st sugarState, streams engine.Streams) (sugarState, SugarRow) {
	row := SugarRow{Day: day, StartStock: st.stock}

	row.Demand = ExponentialDemand(streams.Draw(sugarDemand), s.p.MeanDemand)
	st.demand += row.Demand
	if row.Demand <= st.stock {
		row.Sold = row.Demand
		st.stock -= row.Sold
	} else {
		row.Sold = st.stock
		row.Lost = row.Demand - st.stock
		st.stock = 0
		st.unmet += row.Lost
	}

	if st.pending {
		st.countdown--
		if st.countdown <= 0 {
			row.Arrived = st.orderQty
			st.stock += row.Arrived
			st.pending = false
			row.PurchaseCost = row.Arrived * s.p.UnitCost
			st.cost += row.PurchaseCost
			st.stock = min(st.stock, s.p.Capacity)
		}
	}

	if day%s.p.ReviewDays == 0 && !st.pending {
		if qty := s.p.Capacity - st.stock; qty > 0 {
			st.pending = true
			st.orderQty = qty
			st.countdown = LeadTime(streams.Draw(sugarLead))
			st.orders++
			row.Ordered = qty
			row.LeadTime = st.countdown
			row.OrderCost = s.p.OrderCost
			st.cost += row.OrderCost
		}
	}

	row.HoldingCost = (row.StartStock + st.stock) / 2 * s.p.HoldingCost
	st.cost += row.HoldingCost
	row.Revenue = row.Sold * s.p.UnitPrice
	st.revenue += row.Revenue

	row.EndStock = st.stock
	row.TotalRevenue = st.revenue
	row.TotalCost = st.cost
	row.Profit = st.revenue - st.cost
	return st, row
}

// Summarize implements engine.Model.
func (Sugar) Summarize(st sugarState) SugarSummary {
	return SugarSummary{
		TotalDemand:        st.demand,
		Unmet:              st.unmet,
		Revenue:            st.revenue,
		TotalCost:          st.cost,
		NetProfit:          st.revenue - st.cost,
		Orders:             st.orders,
		CapacitySufficient: st.unmet <= unmetTolerance,
	}
}

// ExponentialDemand is the inverse transform of an exponential with the given mean.
func ExponentialDemand(u, mean float64) float64 {
	return -mean * math.Log(1-u)
}

// LeadTime maps a uniform onto a delivery delay of 1 or 2 days.
func LeadTime(u float64) int {
	return 1 + int(math.Floor(u*2))
}

package exercise

import (
	"math"

	"github.com/louisbranch/simlab/internal/sim/engine"
)

const (
	shopArrivals = iota
	shopItems
)

var shopSources = []engine.Source{
	shopArrivals: {Name: "arrivals", Base: 20251, Combine: engine.CombineAdd},
	shopItems:    {Name: "items", Base: 7919, Combine: engine.CombineXorShift},
}

// maxCustomersPerHour is exclusive: customers are drawn from [0, 5).
const maxCustomersPerHour = 5

// ShopParams configures a day at the shop.
type ShopParams struct {
	Hours     int     // NMH
	UnitCost  float64 // CUA
	UnitPrice float64 // PVU
	FixedCost float64 // CF
}

// DefaultShopParams returns the classroom defaults.
func DefaultShopParams() ShopParams {
	return ShopParams{Hours: 10, UnitCost: 50, UnitPrice: 75, FixedCost: 300}
}

// Validate reports whether the day is ready to simulate.
func (p ShopParams) Validate() error {
	return firstError(
		periods("hours", p.Hours),
		nonNegative("unit_cost", p.UnitCost),
		nonNegative("unit_price", p.UnitPrice),
		nonNegative("fixed_cost", p.FixedCost),
	)
}

// ShopRow is one hour of trading.
type ShopRow struct {
	Hour      int     `json:"hour"`
	Customers int     `json:"customers"`
	Items     int     `json:"items"`
	Revenue   float64 `json:"revenue"`
	Cost      float64 `json:"cost"`
	Profit    float64 `json:"profit"`
}

// ShopSummary holds the day totals for one trial.
type ShopSummary struct {
	ItemsSold   int     `json:"items_sold"`
	Revenue     float64 `json:"revenue"`
	Cost        float64 `json:"cost"`
	GrossProfit float64 `json:"gross_profit"`
	NetProfit   float64 `json:"net_profit"`
}

// Metrics implements engine.Summary.
func (s ShopSummary) Metrics() []engine.Metric {
	return []engine.Metric{
		{Name: "items_sold", Value: float64(s.ItemsSold)},
		{Name: "gross_profit", Value: s.GrossProfit},
		{Name: "net_profit", Value: s.NetProfit},
	}
}

type shopState struct {
	items   int
	revenue float64
	cost    float64
	profit  float64
}

// Shop is the shop demand model.
type Shop struct {
	p ShopParams
}

// NewShop validates p and returns the model.
func NewShop(p ShopParams) (Shop, error) {
	if err := p.Validate(); err != nil {
		return Shop{}, err
	}
	return Shop{p: p}, nil
}

// Name implements engine.Model.
func (Shop) Name() string {
	return string(KindShop)
}

// Sources implements engine.Model.
func (Shop) Sources() []engine.Source {
	return shopSources
}

// Periods implements engine.Model.
func (s Shop) Periods() int {
	return s.p.Hours
}

// Init implements engine.Model.
func (Shop) Init() shopState {
	return shopState{}
}

// Step implements engine.Model.
func (s Shop) Step(hour int, st shopState, streams engine.Streams) (shopState, ShopRow) {
	customers := int(math.Floor(streams.Draw(shopArrivals) * maxCustomersPerHour))
	items := 0
	for range customers {
		items += ItemsPerCustomer(streams.Draw(shopItems))
	}
	revenue := float64(items) * s.p.UnitPrice
	cost := float64(items) * s.p.UnitCost
	profit := revenue - cost

	st.items += items
	st.revenue += revenue
	st.cost += cost
	st.profit += profit
	return st, ShopRow{
		Hour:      hour,
		Customers: customers,
		Items:     items,
		Revenue:   revenue,
		Cost:      cost,
		Profit:    profit,
	}
}

// Summarize implements engine.Model.
func (s Shop) Summarize(st shopState) ShopSummary {
	return ShopSummary{
		ItemsSold:   st.items,
		Revenue:     st.revenue,
		Cost:        st.cost,
		GrossProfit: st.profit,
		NetProfit:   st.profit - s.p.FixedCost,
	}
}

// ItemsPerCustomer maps a uniform onto 0 to 3 items.
func ItemsPerCustomer(u float64) int {
	switch {
	case u <= 0.2:
		return 0
	case u <= 0.5:
		return 1
	case u <= 0.9:
		return 2
	default:
		return 3
	}
}

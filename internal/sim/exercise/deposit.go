package exercise

// DepositRow is one year of compounding.
type DepositRow struct {
	Year     int     `json:"year"`
	Capital  float64 `json:"capital"`
	Interest float64 `json:"interest"`
	Next     float64 `json:"next"`
}

// Deposit is the full compounding schedule.
type Deposit struct {
	Rate  float64      `json:"rate"`
	Rows  []DepositRow `json:"rows"`
	Final float64      `json:"final"`
}

// FixedDepositParams configures a deposit at a constant annual rate.
type FixedDepositParams struct {
	Capital float64
	// RatePercent is the annual rate, 5 meaning 5%.
	RatePercent float64
	Years       int
}

// Validate reports whether the deposit is ready to compute.
func (p FixedDepositParams) Validate() error {
	return firstError(
		positive("capital", p.Capital),
		periods("years", p.Years),
	)
}

// FixedDeposit compounds capital at a constant rate for p.Years years.
func FixedDeposit(p FixedDepositParams) (Deposit, error) {
	if err := p.Validate(); err != nil {
		return Deposit{}, err
	}
	return compound(p.Capital, p.RatePercent/100, p.Years), nil
}

// VariableDepositParams configures a deposit whose rate depends on capital.
type VariableDepositParams struct {
	Capital float64
	Years   int
}

// Validate reports whether the deposit is ready to compute.
func (p VariableDepositParams) Validate() error {
	return firstError(
		positive("capital", p.Capital),
		periods("years", p.Years),
	)
}

// VariableRate is the annual rate tier for an opening capital.
func VariableRate(capital float64) float64 {
	switch {
	case capital <= 10_000:
		return 0.035
	case capital <= 100_000:
		return 0.037
	default:
		return 0.040
	}
}

// VariableDeposit compounds capital at the tier rate of the opening capital.
func VariableDeposit(p VariableDepositParams) (Deposit, error) {
	if err := p.Validate(); err != nil {
		return Deposit{}, err
	}
	return compound(p.Capital, VariableRate(p.Capital), p.Years), nil
}

func compound(capital, rate float64, years int) Deposit {
	d := Deposit{Rate: rate, Rows: make([]DepositRow, 0, years)}
	k := capital
	for t := 1; t <= years; t++ {
		interest := k * rate
		next := k + interest
		d.Rows = append(d.Rows, DepositRow{Year: t, Capital: k, Interest: interest, Next: next})
		k = next
	}
	d.Final = k
	return d
}

package engine

// Metric is one named numeric field of a summary.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Summary exposes the numeric fields averaged across trials, in a stable order.
type Summary interface {
	Metrics() []Metric
}

// Predicate is implemented by summaries that carry a pass/fail outcome.
type Predicate interface {
	Satisfied() bool
}

// AggregateSummary is the unweighted mean of every summary metric.
type AggregateSummary struct {
	Trials int      `json:"trials"`
	Means  []Metric `json:"means"`
	// PredicateRate is the fraction of trials whose summary satisfied its
	// predicate; nil when the summary has none.
	PredicateRate *float64 `json:"predicate_rate,omitempty"`
}

// Mean returns the mean of the named metric.
func (a AggregateSummary) Mean(name string) (float64, bool) {
	for _, m := range a.Means {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

// Aggregate averages the summaries of trials. An empty batch yields a zero value.
func Aggregate[R any, T Summary](trials []Trial[R, T]) AggregateSummary {
	agg := AggregateSummary{Trials: len(trials)}
	if len(trials) == 0 {
		return agg
	}

	sums := trials[0].Summary.Metrics()
	for i := range sums {
		sums[i].Value = 0
	}
	passed, predicated := 0, false
	for _, trial := range trials {
		for i, m := range trial.Summary.Metrics() {
			sums[i].Value += m.Value
		}
		if p, ok := any(trial.Summary).(Predicate); ok {
			predicated = true
			if p.Satisfied() {
				passed++
			}
		}
	}

	n := float64(len(trials))
	for i := range sums {
		sums[i].Value /= n
	}
	agg.Means = sums
	if predicated {
		rate := float64(passed) / n
		agg.PredicateRate = &rate
	}
	return agg
}

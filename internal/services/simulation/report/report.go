// Package report renders simulation results as localized plain text.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/louisbranch/simlab/internal/platform/i18n/catalog"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/engine"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/storage"
	"golang.org/x/text/message"
)

// Printer writes reports in one locale.
type Printer struct {
	p *message.Printer
}

// New returns a printer for the closest supported match of locale.
func New(locale string) *Printer {
	return &Printer{p: catalog.Default().Printer(locale)}
}

// Sprintf formats one catalog message.
func (r *Printer) Sprintf(key string, args ...any) string {
	return r.p.Sprintf(key, args...)
}

// Line writes one catalog message followed by a newline.
func (r *Printer) Line(w io.Writer, key string, args ...any) error {
	ew := &errWriter{w: w, p: r.p}
	ew.line(key, args...)
	return ew.err
}

// Result writes the run header followed by the model output.
func (r *Printer) Result(w io.Writer, res app.Result) error {
	ew := &errWriter{w: w, p: r.p}
	if res.RunID != "" {
		ew.line("report.run_id", res.RunID)
	}
	ew.line("report.model", string(res.Model))
	if res.Deposit != nil {
		writeDeposit(ew, res.Deposit)
		return ew.err
	}
	ew.line("report.epoch", res.Epoch)
	ew.line("report.trials", res.Trials)
	switch {
	case res.Dice != nil:
		writeBatch(ew, res.Dice)
	case res.Shop != nil:
		writeBatch(ew, res.Shop)
	case res.EggFarm != nil:
		writeBatch(ew, res.EggFarm)
	case res.Sugar != nil:
		writeBatch(ew, res.Sugar)
	}
	return ew.err
}

// Sequence writes every row of a congruential sequence, its period and any
// warnings.
func (r *Printer) Sequence(w io.Writer, seq congruential.Sequence) error {
	ew := &errWriter{w: w, p: r.p}
	ew.line("report.sequence.header", string(seq.Method), seq.Seed, seq.Multiplier, seq.Increment, seq.Modulus)
	for _, row := range seq.Rows {
		ew.line("report.sequence.row", row.Index, row.Operation, row.Value, row.Ratio)
	}
	if period := seq.Period(); period > 0 {
		ew.line("report.sequence.period", period)
	} else {
		ew.line("report.sequence.no_period", len(seq.Rows))
	}
	for _, warning := range seq.Warnings {
		ew.line("report.warning", warning.Message)
	}
	return ew.err
}

// Runs writes one line per journaled run and the next page token.
func (r *Printer) Runs(w io.Writer, page storage.RunPage) error {
	ew := &errWriter{w: w, p: r.p}
	if len(page.Runs) == 0 {
		ew.line("report.no_runs")
	}
	for _, run := range page.Runs {
		ew.line("report.run_row", run.ID, run.Model, run.Epoch, run.Trials, run.CreatedAt.UTC().Format(time.RFC3339))
	}
	if page.NextPageToken != "" {
		ew.line("report.next_page", page.NextPageToken)
	}
	return ew.err
}

func writeDeposit(ew *errWriter, deposit *exercise.Deposit) {
	ew.line("report.deposit.rate", deposit.Rate*100)
	for _, row := range deposit.Rows {
		ew.line("report.deposit.row", row.Year, row.Capital, row.Interest, row.Next)
	}
	ew.line("report.deposit.final", deposit.Final)
}

func writeBatch[R any, T engine.Summary](ew *errWriter, batch *app.Batch[R, T]) {
	for _, trial := range batch.Trials {
		ew.line("report.trial", trial.Index+1)
		writeMetrics(ew, trial.Summary.Metrics())
	}
	ew.line("report.aggregate", batch.Aggregate.Trials)
	writeMetrics(ew, batch.Aggregate.Means)
	if rate := batch.Aggregate.PredicateRate; rate != nil {
		ew.line("report.predicate", *rate*100)
	}
}

func writeMetrics(ew *errWriter, metrics []engine.Metric) {
	for _, m := range metrics {
		ew.line("report.metric", ew.p.Sprintf("metric."+m.Name), m.Value)
	}
}

// errWriter keeps the first write error so callers check once.
type errWriter struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func (ew *errWriter) line(key string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, ew.p.Sprintf(key, args...))
}

package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/conduit-lang/dynarename/internal/apply"
)

// Reporter prints session milestones to a diagnostic stream
type Reporter struct {
	out         io.Writer
	noColor     bool
	interactive bool

	spinner *Spinner
	bar     *ProgressBar
}

// ReporterOptions configures a Reporter
type ReporterOptions struct {
	NoColor bool
	// Interactive enables the scan spinner and write progress bar
	Interactive bool
}

// NewReporter creates a reporter writing to out
func NewReporter(out io.Writer, opts ReporterOptions) *Reporter {
	return &Reporter{out: out, noColor: opts.NoColor, interactive: opts.Interactive}
}

// IsInteractive reports whether f is a terminal
func IsInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// StartScan shows a spinner until Scanned is called
func (r *Reporter) StartScan(table string) {
	if !r.interactive {
		return
	}
	r.spinner = NewSpinner(r.out, fmt.Sprintf("scanning %s...", table), 0, r.noColor)
	r.spinner.Start()
}

// StopScan clears the spinner if it is running
func (r *Reporter) StopScan() {
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}

// Scanned implements apply.Reporter
func (r *Reporter) Scanned(count int) {
	r.StopScan()
	fmt.Fprintf(r.out, "scanned %d row(s) in table...\n", count)
}

// NoChanges implements apply.Reporter
func (r *Reporter) NoChanges(plan *apply.Plan) {
	r.unmatched(plan)
	fmt.Fprintln(r.out, "no replacements found.")
}

// Prepared implements apply.Reporter
func (r *Reporter) Prepared(plan *apply.Plan) {
	r.unmatched(plan)
	fmt.Fprintf(r.out, "prepared to make %d replacement(s) across %d item(s) with %d overwritten key(s)...\n",
		plan.Result.Replacements, len(plan.Changes), plan.Result.Overwrites)
}

// Progress is passed to the runner; it draws a bar when interactive
func (r *Reporter) Progress(applied, total int) {
	if !r.interactive {
		return
	}
	if r.bar == nil {
		r.bar = NewProgressBar(r.out, total, 0, "items", r.noColor)
	}
	r.bar.Set(applied)
}

// Finish clears the spinner and ends a progress line left open by a failed run
func (r *Reporter) Finish() {
	r.StopScan()
	if r.bar != nil {
		r.bar.Finish()
	}
}

// Applied implements apply.Reporter
func (r *Reporter) Applied(count int) {
	fmt.Fprintf(r.out, "successfully updated %d items.\n", count)
}

func (r *Reporter) unmatched(plan *apply.Plan) {
	for _, rule := range plan.Unmatched {
		msg := fmt.Sprintf("no attribute named %q in any scanned item (%s)", rule.From, rule)
		fmt.Fprint(r.out, Warning(msg, FindSimilar(rule.From, plan.Attributes), r.noColor))
	}
}

package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/client"
	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/Sternrassler/cin7-report-sync/pkg/pagination"
	"github.com/Sternrassler/cin7-report-sync/pkg/ratelimit"
	"github.com/Sternrassler/cin7-report-sync/pkg/record"
	"github.com/Sternrassler/cin7-report-sync/pkg/report"
	"github.com/rs/zerolog"
)

// State is a step of the account page loop.
type State int

const (
	StateStart State = iota
	StateFetchingPage
	StateValidating
	StateExpanding
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateFetchingPage:
		return "fetching_page"
	case StateValidating:
		return "validating"
	case StateExpanding:
		return "expanding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the terminal status of an account pipeline.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Admitter gates API calls per account.
type Admitter interface {
	Admit(ctx context.Context, account string) bool
}

// usageReporter is implemented by trackers that expose usage snapshots.
type usageReporter interface {
	Usage(account string) ratelimit.Usage
}

// Result is the outcome of one account pipeline. Rows and Errors hold
// everything gathered before the terminal state, even on failure.
type Result struct {
	Account  string
	Rows     []report.OutputRow
	Errors   []report.ProcessingError
	Status   Status
	Err      error
	Pages    int
	Records  int
	Started  time.Time
	Finished time.Time
}

// Duration returns the pipeline wall time.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// RecordFilter decides whether a record belongs in the report window.
type RecordFilter interface {
	Keep(rec *record.RawRecord, window report.DateRange) bool
}

// RecordExpander turns a kept record into output rows.
type RecordExpander interface {
	Expand(rec *record.RawRecord, account string) ([]report.OutputRow, error)
}

// Deps are the collaborators of an AccountPipeline.
type Deps struct {
	Tracker  Admitter
	Fetcher  pagination.PageFetcher
	Filter   RecordFilter
	Expander RecordExpander
	Window   report.DateRange
}

// AccountPipeline runs the page loop for one account at a time. It holds no
// per-run state, so one instance can serve every worker.
type AccountPipeline struct {
	deps   Deps
	now    func() time.Time
	logger zerolog.Logger
}

// NewAccountPipeline creates a pipeline.
func NewAccountPipeline(deps Deps) *AccountPipeline {
	return &AccountPipeline{
		deps:   deps,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.NewLogger("pipeline"),
	}
}

// run carries the state of one account run.
type run struct {
	p       *AccountPipeline
	account client.Account
	state   State
	result  Result
	logger  zerolog.Logger
}

// Run walks the account's pages until an empty page (Done), a transport
// error or a cancelled ctx (Failed). A panic outside record processing also
// ends the run Failed with the rows gathered so far.
func (p *AccountPipeline) Run(ctx context.Context, account client.Account) (res Result) {
	r := &run{
		p:       p,
		account: account,
		state:   StateStart,
		result:  Result{Account: account.Name, Started: p.now()},
		logger:  logging.ForAccount(p.logger, account.Name),
	}
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error().Interface("panic", v).Bytes("stack", debug.Stack()).Msg("Account run panicked")
			res = r.fail(fmt.Errorf("pipeline panic: %v", v))
		}
	}()
	r.logUsage("Starting account")

	for page := 1; ; page++ {
		r.transition(StateFetchingPage)

		if !r.admit(ctx) {
			return r.fail(fmt.Errorf("waiting for admission: %w", ctx.Err()))
		}

		pg := p.deps.Fetcher.Fetch(ctx, account, page)
		switch pg.Outcome {
		case pagination.OutcomeEmpty:
			r.logger.Info().Int("page", page).Msg("No more records")
			return r.done()
		case pagination.OutcomeTransportError:
			return r.fail(pg.Err)
		}

		r.processPage(pg)

		if err := ctx.Err(); err != nil {
			return r.fail(err)
		}
	}
}

// admit blocks until the tracker admits a call. It returns false only when
// ctx is done.
func (r *run) admit(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if r.p.deps.Tracker.Admit(ctx, r.account.Name) {
			return true
		}
		r.logger.Info().Msg("API limit reached, waiting for the next opportunity")
	}
}

func (r *run) processPage(pg pagination.Page) {
	r.result.Pages++
	r.result.Records += len(pg.Records)
	pagesTotal.WithLabelValues(r.account.Name).Inc()

	rowsBefore := len(r.result.Rows)
	errorsBefore := len(r.result.Errors)

	for i := range pg.Records {
		r.processRecord(&pg.Records[i])
	}

	added := len(r.result.Rows) - rowsBefore
	rowsTotal.WithLabelValues(r.account.Name).Add(float64(added))

	r.logger.Info().
		Int("page", pg.Number).
		Int("records", len(pg.Records)).
		Int("rows", added).
		Int("errors", len(r.result.Errors)-errorsBefore).
		Bool("cached", pg.Cached).
		Msg("Page processed")
}

// processRecord validates and expands one record. A panic while handling it
// becomes a ProcessingError for that record only.
func (r *run) processRecord(rec *record.RawRecord) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error().Interface("panic", v).Int64("record_id", rec.ID).Msg("Record processing panicked")
			r.recordError(rec, fmt.Errorf("panic: %v", v))
		}
	}()

	r.transition(StateValidating)
	if err := rec.DecodeErr(); err != nil {
		r.recordError(rec, err)
		return
	}
	if !r.p.deps.Filter.Keep(rec, r.p.deps.Window) {
		return
	}

	r.transition(StateExpanding)
	rows, err := r.p.deps.Expander.Expand(rec, r.account.Name)
	if err != nil {
		r.recordError(rec, err)
		return
	}
	r.result.Rows = append(r.result.Rows, rows...)
}

func (r *run) recordError(rec *record.RawRecord, err error) {
	processingErrorsTotal.WithLabelValues(r.account.Name).Inc()
	r.logger.Debug().Err(err).Int64("record_id", rec.ID).Str("reference", rec.Reference).Msg("Record failed expansion")
	r.result.Errors = append(r.result.Errors, report.ProcessingError{
		Account:   r.account.Name,
		RecordID:  rec.ID,
		Reference: rec.Reference,
		Err:       err.Error(),
		Timestamp: r.p.now(),
	})
}

func (r *run) transition(s State) {
	if r.state == s {
		return
	}
	r.state = s
	if e := r.logger.Trace(); e.Enabled() {
		e.Str("state", s.String()).Msg("Pipeline state")
	}
}

func (r *run) done() Result {
	r.transition(StateDone)
	return r.finish(StatusDone, nil)
}

func (r *run) fail(err error) Result {
	r.transition(StateFailed)
	r.logger.Error().Err(err).Int("pages", r.result.Pages).Int("rows", len(r.result.Rows)).Msg("Account failed")
	return r.finish(StatusFailed, err)
}

func (r *run) finish(status Status, err error) Result {
	r.result.Status = status
	r.result.Err = err
	r.result.Finished = r.p.now()
	runsTotal.WithLabelValues(string(status)).Inc()
	runDuration.Observe(r.result.Duration().Seconds())
	r.logUsage("Finished account")
	return r.result
}

func (r *run) logUsage(msg string) {
	e := r.logger.Info()
	if ur, ok := r.p.deps.Tracker.(usageReporter); ok {
		u := ur.Usage(r.account.Name)
		e = e.Int("minute_calls", u.Minute.Count).Int("hour_calls", u.Hour.Count).Int("day_calls", u.Day.Count)
	}
	if r.state != StateStart {
		e = e.Str("status", string(r.result.Status)).Int("pages", r.result.Pages).Int("rows", len(r.result.Rows))
	}
	e.Msg(msg)
}

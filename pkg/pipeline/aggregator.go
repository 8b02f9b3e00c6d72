package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/client"
	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/Sternrassler/cin7-report-sync/pkg/report"
	"github.com/rs/zerolog"
)

// DefaultPoolSize is the number of accounts processed concurrently.
const DefaultPoolSize = 4

// Runner runs one account to completion.
type Runner interface {
	Run(ctx context.Context, account client.Account) Result
}

// Report is the merged outcome of an aggregation run.
type Report struct {
	Rows    []report.OutputRow
	Errors  []report.ProcessingError
	Results []Result
}

// Failed returns the results of accounts that did not finish cleanly.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Aggregator runs a Runner for every account on a fixed-size worker pool.
type Aggregator struct {
	runner   Runner
	poolSize int
	logger   zerolog.Logger
}

// NewAggregator creates an aggregator with poolSize workers. A non-positive
// size falls back to DefaultPoolSize.
func NewAggregator(runner Runner, poolSize int) *Aggregator {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Aggregator{
		runner:   runner,
		poolSize: poolSize,
		logger:   logging.NewLogger("aggregator"),
	}
}

type job struct {
	index   int
	account client.Account
}

// Run processes every account and returns once all pipelines have finished.
// Rows and errors are concatenated in the order accounts were given, each
// account's rows in page order. Run never panics: a panicking pipeline is
// reported as a failed Result.
func (a *Aggregator) Run(ctx context.Context, accounts []client.Account) Report {
	start := time.Now()
	results := make([]Result, len(accounts))

	queue := make(chan job, len(accounts))
	for i, acct := range accounts {
		queue <- job{index: i, account: acct}
	}
	close(queue)

	workers := min(a.poolSize, len(accounts))

	a.logger.Info().
		Int("accounts", len(accounts)).
		Int("workers", workers).
		Msg("Starting aggregation")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go a.worker(ctx, queue, results, &wg, i)
	}
	wg.Wait()

	var out Report
	out.Results = results
	for i := range results {
		out.Rows = append(out.Rows, results[i].Rows...)
		out.Errors = append(out.Errors, results[i].Errors...)
	}

	a.logger.Info().
		Int("accounts", len(accounts)).
		Int("failed", len(out.Failed())).
		Int("rows", len(out.Rows)).
		Int("errors", len(out.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Aggregation complete")

	return out
}

// worker drains the queue. Each result slot is written by exactly one worker.
func (a *Aggregator) worker(ctx context.Context, queue <-chan job, results []Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for j := range queue {
		results[j.index] = a.runOne(ctx, j.account)
		processed++
	}

	a.logger.Debug().
		Int("worker_id", workerID).
		Int("accounts_processed", processed).
		Msg("Worker completed")
}

func (a *Aggregator) runOne(ctx context.Context, account client.Account) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error().
				Str("account", account.Name).
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("Pipeline panicked")
			runsTotal.WithLabelValues(string(StatusFailed)).Inc()
			res = Result{
				Account:  account.Name,
				Status:   StatusFailed,
				Err:      fmt.Errorf("pipeline panic: %v", p),
				Finished: time.Now().UTC(),
			}
		}
	}()
	return a.runner.Run(ctx, account)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/client"
	"github.com/Sternrassler/cin7-report-sync/pkg/pagination"
	"github.com/Sternrassler/cin7-report-sync/pkg/record"
	"github.com/Sternrassler/cin7-report-sync/pkg/report"
)

// fakeFetcher serves canned pages per account. Pages beyond the script are
// empty; failAt makes that page a transport error and panicAt makes that
// page panic.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string][]string
	failAt  map[string]int
	calls   map[string][]int
	panicAt map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   make(map[string][]string),
		failAt:  make(map[string]int),
		calls:   make(map[string][]int),
		panicAt: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, account client.Account, page int) pagination.Page {
	f.mu.Lock()
	f.calls[account.Name] = append(f.calls[account.Name], page)
	script := f.pages[account.Name]
	failAt := f.failAt[account.Name]
	panicAt := f.panicAt[account.Name]
	f.mu.Unlock()

	if page == panicAt {
		panic("boom")
	}
	if page == failAt {
		return pagination.Page{Number: page, Outcome: pagination.OutcomeTransportError, Err: errors.New("connection reset")}
	}
	if page > len(script) {
		return pagination.Page{Number: page, Outcome: pagination.OutcomeEmpty}
	}
	recs, err := record.DecodePage([]byte(script[page-1]))
	if err != nil {
		panic(err)
	}
	if len(recs) == 0 {
		return pagination.Page{Number: page, Outcome: pagination.OutcomeEmpty}
	}
	return pagination.Page{Number: page, Records: recs, Outcome: pagination.OutcomeOK}
}

func (f *fakeFetcher) pagesFetched(account string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls[account]...)
}

// fakeAdmitter denies the first deny calls and admits the rest.
type fakeAdmitter struct {
	deny  atomic.Int32
	calls atomic.Int32
}

func (a *fakeAdmitter) Admit(ctx context.Context, account string) bool {
	a.calls.Add(1)
	return a.deny.Add(-1) < 0
}

// order renders a purchase order with n line items created on 2024-06-01.
func order(id int, n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"code":"P%d-%d","qty":1,"unitPrice":10}`, id, i)
	}
	return fmt.Sprintf(`{"id":%d,"reference":"PO-%d","createdDate":"2024-06-01T10:00:00Z","lineItems":[%s]}`, id, id, strings.Join(items, ","))
}

func page(orders ...string) string {
	return "[" + strings.Join(orders, ",") + "]"
}

func newTestPipeline(t *testing.T, fetcher pagination.PageFetcher, admitter Admitter) *AccountPipeline {
	t.Helper()
	v, err := report.Lookup("purchase-orders")
	if err != nil {
		t.Fatal(err)
	}
	window, err := report.Fixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	return NewAccountPipeline(Deps{
		Tracker:  admitter,
		Fetcher:  fetcher,
		Filter:   report.NewFilter(v),
		Expander: report.NewExpander(v, report.DefaultNames),
		Window:   window,
	})
}

func TestAccountPipeline_Done(t *testing.T) {
	f := newFakeFetcher()
	f.pages["A"] = []string{
		page(order(1, 2), order(2, 1)),
		page(order(3, 3)),
	}
	admitter := &fakeAdmitter{}

	res := newTestPipeline(t, f, admitter).Run(context.Background(), client.Account{Name: "A"})

	if res.Status != StatusDone || res.Err != nil {
		t.Fatalf("Status = %v, Err = %v", res.Status, res.Err)
	}
	if len(res.Rows) != 6 {
		t.Errorf("rows = %d, want 6", len(res.Rows))
	}
	if res.Pages != 2 || res.Records != 3 {
		t.Errorf("Pages = %d, Records = %d", res.Pages, res.Records)
	}
	if got := f.pagesFetched("A"); fmt.Sprint(got) != "[1 2 3]" {
		t.Errorf("pages fetched = %v, want [1 2 3]", got)
	}
	if got := admitter.calls.Load(); got != 3 {
		t.Errorf("admissions = %d, want one per fetch", got)
	}

	// Rows keep page order.
	if res.Rows[0].Reference != "PO-1" || res.Rows[5].Reference != "PO-3" {
		t.Errorf("row order = %s ... %s", res.Rows[0].Reference, res.Rows[5].Reference)
	}
}

func TestAccountPipeline_FailureKeepsPartialRows(t *testing.T) {
	f := newFakeFetcher()
	f.pages["A"] = []string{page(order(1, 1)), page(order(2, 2)), page(order(3, 1))}
	f.failAt["A"] = 3

	res := newTestPipeline(t, f, &fakeAdmitter{}).Run(context.Background(), client.Account{Name: "A"})

	if res.Status != StatusFailed || res.Err == nil {
		t.Fatalf("Status = %v, Err = %v", res.Status, res.Err)
	}
	if len(res.Rows) != 3 {
		t.Errorf("rows = %d, want 3 from pages 1-2", len(res.Rows))
	}
	if got := f.pagesFetched("A"); fmt.Sprint(got) != "[1 2 3]" {
		t.Errorf("pages fetched = %v, no retry expected", got)
	}
}

func TestAccountPipeline_PanicKeepsPartialRows(t *testing.T) {
	f := newFakeFetcher()
	f.pages["A"] = []string{page(order(1, 2)), page(order(2, 1))}
	f.panicAt["A"] = 2

	res := newTestPipeline(t, f, &fakeAdmitter{}).Run(context.Background(), client.Account{Name: "A"})

	if res.Status != StatusFailed || res.Err == nil {
		t.Fatalf("Status = %v, Err = %v", res.Status, res.Err)
	}
	if len(res.Rows) != 2 || res.Pages != 1 {
		t.Errorf("rows = %d pages = %d, want 2 rows from page 1", len(res.Rows), res.Pages)
	}
	if res.Started.IsZero() || res.Finished.Before(res.Started) {
		t.Errorf("Started = %v Finished = %v", res.Started, res.Finished)
	}
}

// panickyExpander panics on one record id and delegates the rest.
type panickyExpander struct {
	inner RecordExpander
	id    int64
}

func (e panickyExpander) Expand(rec *record.RawRecord, account string) ([]report.OutputRow, error) {
	if rec.ID == e.id {
		panic("bad record")
	}
	return e.inner.Expand(rec, account)
}

func TestAccountPipeline_RecordPanicIsProcessingError(t *testing.T) {
	f := newFakeFetcher()
	f.pages["A"] = []string{page(order(1, 1), order(2, 3), order(3, 1))}

	p := newTestPipeline(t, f, &fakeAdmitter{})
	p.deps.Expander = panickyExpander{inner: p.deps.Expander, id: 2}

	res := p.Run(context.Background(), client.Account{Name: "A"})

	if res.Status != StatusDone {
		t.Fatalf("Status = %v, Err = %v", res.Status, res.Err)
	}
	if len(res.Rows) != 2 {
		t.Errorf("rows = %d, want 2 from records 1 and 3", len(res.Rows))
	}
	if len(res.Errors) != 1 || res.Errors[0].RecordID != 2 || !strings.Contains(res.Errors[0].Err, "bad record") {
		t.Errorf("errors = %+v", res.Errors)
	}
}

func TestAccountPipeline_RetriesAdmission(t *testing.T) {
	f := newFakeFetcher()
	f.pages["A"] = []string{page(order(1, 1))}
	admitter := &fakeAdmitter{}
	admitter.deny.Store(3)

	res := newTestPipeline(t, f, admitter).Run(context.Background(), client.Account{Name: "A"})

	if res.Status != StatusDone || len(res.Rows) != 1 {
		t.Fatalf("Status = %v rows = %d", res.Status, len(res.Rows))
	}
	if got := admitter.calls.Load(); got != 5 {
		t.Errorf("admission calls = %d, want 3 denied + 2 admitted", got)
	}
}

func TestAccountPipeline_ProcessingErrors(t *testing.T) {
	f := newFakeFetcher()
	f.pages["A"] = []string{
		page(
			order(1, 1),
			`{"id":2,"reference":"PO-2","createdDate":"2024-06-01T10:00:00Z","lineItems":"broken"}`,
			`{"id":3,"reference":"PO-3","createdDate":"2023-01-01T10:00:00Z","lineItems":[{"code":"old"}]}`,
			`{"id":4,"reference":"PO-4","createdDate":"2024-06-01T10:00:00Z","isVoid":true,"lineItems":[{"code":"void"}]}`,
			order(5, 2),
		),
	}

	res := newTestPipeline(t, f, &fakeAdmitter{}).Run(context.Background(), client.Account{Name: "A"})

	if res.Status != StatusDone {
		t.Fatalf("Status = %v, Err = %v", res.Status, res.Err)
	}
	if len(res.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(res.Rows))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(res.Errors))
	}
	e := res.Errors[0]
	if e.Account != "A" || e.RecordID != 2 || e.Reference != "PO-2" || e.Err == "" || e.Timestamp.IsZero() {
		t.Errorf("processing error = %+v", e)
	}
}

func TestAccountPipeline_ContextCancelled(t *testing.T) {
	f := newFakeFetcher()
	f.pages["A"] = []string{page(order(1, 1))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestPipeline(t, f, &fakeAdmitter{}).Run(ctx, client.Account{Name: "A"})
	if res.Status != StatusFailed || !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Status = %v, Err = %v", res.Status, res.Err)
	}
	if len(f.pagesFetched("A")) != 0 {
		t.Error("no page should be fetched after cancellation")
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateStart:        "start",
		StateFetchingPage: "fetching_page",
		StateValidating:   "validating",
		StateExpanding:    "expanding",
		StateDone:         "done",
		StateFailed:       "failed",
		State(99):         "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

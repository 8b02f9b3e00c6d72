package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/cache"
	"github.com/Sternrassler/cin7-report-sync/pkg/client"
	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/Sternrassler/cin7-report-sync/pkg/record"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the rows-per-page sent to every account.
const DefaultPageSize = 250

// Outcome classifies the result of one page fetch.
type Outcome int

const (
	// OutcomeOK means the page held at least one record.
	OutcomeOK Outcome = iota

	// OutcomeEmpty means the listing is exhausted.
	OutcomeEmpty

	// OutcomeTransportError means the page could not be fetched or decoded.
	OutcomeTransportError
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Page is the result of fetching one page for one account.
type Page struct {
	Number  int
	Records []record.RawRecord
	Outcome Outcome

	// Err is set only for OutcomeTransportError.
	Err error

	// Cached reports whether the page was served from the page cache.
	Cached bool
}

// PageFetcher fetches and decodes a single page for an account.
type PageFetcher interface {
	Fetch(ctx context.Context, account client.Account, page int) Page
}

// JSONGetter is the transport the HTTP fetcher depends on.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL, authHeader string) (json.RawMessage, error)
	BaseURL() string
}

// Query describes the listing being paged.
type Query struct {
	// Resource is the collection path, e.g. "SalesOrders".
	Resource string

	// Fields is the field selection; empty means the API default.
	Fields []string

	// Rows is the page size; zero means DefaultPageSize.
	Rows int
}

// HTTPFetcher pages a Cin7 list endpoint over HTTP.
type HTTPFetcher struct {
	getter   JSONGetter
	query    Query
	cache    *cache.Manager
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithCache serves pages from a Redis page cache and stores non-empty pages
// for ttl.
func WithCache(manager *cache.Manager, ttl time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.cache = manager
		f.cacheTTL = ttl
	}
}

// NewHTTPFetcher creates a fetcher for query.
func NewHTTPFetcher(getter JSONGetter, query Query, opts ...Option) *HTTPFetcher {
	if query.Rows <= 0 {
		query.Rows = DefaultPageSize
	}

	f := &HTTPFetcher{
		getter: getter,
		query:  query,
		logger: logging.NewLogger("pagination").With().Str("resource", query.Resource).Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PageURL builds the request URL for a page.
func (f *HTTPFetcher) PageURL(page int) string {
	params := url.Values{}
	if len(f.query.Fields) > 0 {
		params.Set("fields", strings.Join(f.query.Fields, ","))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("rows", strconv.Itoa(f.query.Rows))

	return strings.TrimRight(f.getter.BaseURL(), "/") + "/" + strings.Trim(f.query.Resource, "/") + "?" + params.Encode()
}

// Fetch fetches one page. It never returns a Go error: failures are reported
// as OutcomeTransportError with Page.Err set.
func (f *HTTPFetcher) Fetch(ctx context.Context, account client.Account, page int) Page {
	key := cache.CacheKey{
		Account:  account.Name,
		Resource: f.query.Resource,
		Fields:   strings.Join(f.query.Fields, ","),
		Page:     page,
		Rows:     f.query.Rows,
	}

	if f.cache != nil {
		entry, err := f.cache.Get(ctx, key)
		switch {
		case err == nil:
			if records, err := record.DecodePage(entry.Data); err == nil {
				f.logger.Debug().Str("account", account.Name).Int("page", page).Dur("age", entry.Age()).Msg("Page served from cache")
				return classify(page, records, true)
			}
			_ = f.cache.Delete(ctx, key)
		case errors.Is(err, cache.ErrInvalidEntry):
			f.logger.Warn().Err(err).Str("account", account.Name).Int("page", page).Msg("Discarded cached page")
		case !errors.Is(err, cache.ErrCacheMiss):
			f.logger.Warn().Err(err).Str("account", account.Name).Int("page", page).Msg("Page cache get failed")
		}
	}

	body, err := f.getter.GetJSON(ctx, f.PageURL(page), account.AuthHeader())
	if err != nil {
		return Page{Number: page, Outcome: OutcomeTransportError, Err: fmt.Errorf("fetch page %d: %w", page, err)}
	}

	records, err := record.DecodePage(body)
	if err != nil {
		return Page{
			Number:  page,
			Outcome: OutcomeTransportError,
			Err: fmt.Errorf("fetch page %d: %w", page, &client.APIError{
				StatusCode: 200,
				ErrorClass: client.ErrorClassDecode,
				Message:    "page is not a JSON array",
				Err:        err,
			}),
		}
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, cache.NewEntry(page, body, len(records), f.cacheTTL)); err != nil {
			f.logger.Warn().Err(err).Str("account", account.Name).Int("page", page).Msg("Page cache set failed")
		}
	}

	return classify(page, records, false)
}

func classify(page int, records []record.RawRecord, cached bool) Page {
	if len(records) == 0 {
		return Page{Number: page, Outcome: OutcomeEmpty, Cached: cached}
	}
	return Page{Number: page, Records: records, Outcome: OutcomeOK, Cached: cached}
}

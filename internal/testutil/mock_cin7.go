// Package testutil provides testing utilities for the Cin7 report engine.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for one page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCin7 is a configurable mock of the Cin7 v1 list API.
//
// Pages are registered per account and resource. Requests are authenticated
// with basic auth; the username selects the account. Unregistered pages
// answer with an empty JSON array, which ends pagination.
type MockCin7 struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[pageKey]MockResponse
	keys   map[string]string

	// Tracking
	RequestCount      int
	AccountRequests   map[string]int
	LastRequestHeader http.Header
	LastQuery         map[string]string
}

type pageKey struct {
	account  string
	resource string
	page     int
}

// NewMockCin7 creates and starts a mock server.
func NewMockCin7() *MockCin7 {
	mock := &MockCin7{
		pages:           make(map[pageKey]MockResponse),
		keys:            make(map[string]string),
		AccountRequests: make(map[string]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the mock base URL.
func (m *MockCin7) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCin7) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCin7) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.AccountRequests = make(map[string]int)
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetKey requires requests for account to carry secret. Accounts without a
// key accept any secret.
func (m *MockCin7) SetKey(account, secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[account] = secret
}

// SetPage registers a 200 response with body for one page.
func (m *MockCin7) SetPage(account, resource string, page int, body string) {
	m.SetResponse(account, resource, page, NewPageResponse(body))
}

// SetResponse registers an arbitrary response for one page.
func (m *MockCin7) SetResponse(account, resource string, page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[pageKey{account: account, resource: resource, page: page}] = resp
}

// GetRequestCount returns the number of requests served.
func (m *MockCin7) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetAccountRequests returns the number of requests made by account.
func (m *MockCin7) GetAccountRequests(account string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.AccountRequests[account]
}

func (m *MockCin7) serve(w http.ResponseWriter, r *http.Request) {
	account, secret, ok := r.BasicAuth()

	m.mu.Lock()
	m.RequestCount++
	m.AccountRequests[account]++
	m.LastRequestHeader = r.Header.Clone()
	m.LastQuery = map[string]string{
		"fields": r.URL.Query().Get("fields"),
		"page":   r.URL.Query().Get("page"),
		"rows":   r.URL.Query().Get("rows"),
	}
	want, hasKey := m.keys[account]
	m.mu.Unlock()

	if !ok || (hasKey && want != secret) {
		writeResponse(w, NewUnauthorizedResponse())
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		writeResponse(w, MockResponse{StatusCode: http.StatusBadRequest, Body: `{"error":"invalid page"}`})
		return
	}

	key := pageKey{account: account, resource: strings.Trim(r.URL.Path, "/"), page: page}
	m.mu.RLock()
	resp, exists := m.pages[key]
	m.mu.RUnlock()

	if !exists {
		resp = NewPageResponse("[]")
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewPageResponse creates a 200 OK JSON response.
func NewPageResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewUnauthorizedResponse creates a 401 Unauthorized response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "Unauthorized"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"casesearch/internal/domain/models"
	"casesearch/internal/services/notify"
	"casesearch/internal/storage/leveldb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path  string
	Query url.Values
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Path: r.URL.Path, Query: r.URL.Query()})
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeCases(n int) []models.CaseSummary {
	cases := make([]models.CaseSummary, n)
	for i := range cases {
		cases[i] = *models.NewCaseSummary(fmt.Sprint(i+1), fmt.Sprintf("2024-%03d", i+1), i, "summary", "* point")
	}
	return cases
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, handler http.HandlerFunc, opts Options) (*Client, *fakeAPI, *notify.Recorder) {
	t.Helper()

	fake := &fakeAPI{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	rec := &notify.Recorder{}
	opts.BaseURL = srv.URL + "/api"
	opts.Notifier = rec

	return New(newTestLogger(), opts), fake, rec
}

func TestSearchCasesEndpointSelection(t *testing.T) {
	client, fake, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "data": []models.CaseSummary{}})
	}, Options{})

	ctx := context.Background()
	dr, err := models.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	require.NotNil(t, client.SearchCases(ctx, models.SearchRequest{Query: models.SearchQuery{Text: "contract", DateRange: dr}}))
	got := fake.last()
	assert.Equal(t, "/api/cases/date-range", got.Path)
	assert.Equal(t, "2024-01-01", got.Query.Get("start_date"))
	assert.Equal(t, "2024-01-31", got.Query.Get("end_date"))
	assert.Empty(t, got.Query.Get("search"))
	assert.Equal(t, "1", got.Query.Get("page"))
	assert.Equal(t, "20", got.Query.Get("page_size"))

	require.NotNil(t, client.SearchCases(ctx, models.SearchRequest{Query: models.SearchQuery{Text: "contract"}, Page: 3, PageSize: 10}))
	got = fake.last()
	assert.Equal(t, "/api/cases/search", got.Path)
	assert.Equal(t, "contract", got.Query.Get("search"))
	assert.Equal(t, "3", got.Query.Get("page"))
	assert.Equal(t, "10", got.Query.Get("page_size"))

	require.NotNil(t, client.SearchCases(ctx, models.SearchRequest{}))
	got = fake.last()
	assert.Equal(t, "/api/cases", got.Path)
	assert.Equal(t, url.Values{"page": {"1"}, "page_size": {"20"}}, got.Query)
}

func TestSearchCasesSuccess(t *testing.T) {
	client, _, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, map[string]any{
			"success": true,
			"data":    makeCases(20),
			"pagination": map[string]any{
				"current_page": 1,
				"page_size":    20,
				"total_items":  45,
			},
			"message": "ok",
		})
	}, Options{})

	res := client.SearchCases(context.Background(), models.SearchRequest{Query: models.SearchQuery{Text: "contract dispute"}})
	require.NotNil(t, res)

	assert.Len(t, res.Cases, 20)
	assert.Equal(t, 3, res.Pagination.TotalPages)
	assert.True(t, res.Pagination.HasNext)
	assert.False(t, res.Pagination.HasPrevious)
	assert.Equal(t, "ok", res.Message)

	require.Len(t, rec.All(), 1)
	assert.Equal(t, notify.Notification{Kind: notify.KindSuccess, Title: "Search completed", Message: "Found 45 cases"}, rec.All()[0])
	assert.False(t, client.Loading())
}

func TestSearchCasesFailuresResolveToNil(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success": true, "data": [`))
			},
		},
		{
			name: "api reported failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{"success": false, "message": "index offline"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var transitions []bool
			var mu sync.Mutex

			client, _, rec := newClient(t, tt.handler, Options{OnLoading: func(loading bool) {
				mu.Lock()
				defer mu.Unlock()
				transitions = append(transitions, loading)
			}})

			res := client.SearchCases(context.Background(), models.SearchRequest{Query: models.SearchQuery{Text: "x"}})

			assert.Nil(t, res)
			assert.False(t, client.Loading())
			assert.Equal(t, []bool{true, false}, transitions)
			assert.Equal(t, 1, rec.Count(notify.KindError))
			assert.Equal(t, 1, client.Metrics().Total)
		})
	}
}

func TestSearchCasesTransportFailure(t *testing.T) {
	rec := &notify.Recorder{}
	client := New(newTestLogger(), Options{BaseURL: "http://127.0.0.1:1/api", Notifier: rec, Timeout: time.Second})

	assert.Nil(t, client.SearchCases(context.Background(), models.SearchRequest{}))
	assert.Equal(t, 1, rec.Count(notify.KindError))
	assert.Equal(t, 1, client.Metrics().Failed)
}

func TestPaginationComputedWhenAbsent(t *testing.T) {
	client, _, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "data": makeCases(5)})
	}, Options{})

	res := client.SearchCases(context.Background(), models.SearchRequest{Page: 2, PageSize: 10})
	require.NotNil(t, res)

	assert.Equal(t, models.Pagination{CurrentPage: 2, PageSize: 10, TotalItems: 15, TotalPages: 2, HasPrevious: true}, res.Pagination)
}

func TestPaginationCurrentPageFromRequest(t *testing.T) {
	client, fake, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"success":    true,
			"data":       makeCases(20),
			"pagination": map[string]any{"page_size": 20, "total_items": 100},
		})
	}, Options{})

	res := client.SearchCases(context.Background(), models.SearchRequest{Page: 3, PageSize: 20})
	require.NotNil(t, res)

	assert.Equal(t, "3", fake.last().Query.Get("page"))
	assert.Equal(t, models.Pagination{CurrentPage: 3, PageSize: 20, TotalItems: 100, TotalPages: 5, HasNext: true, HasPrevious: true}, res.Pagination)
}

func TestLegacyContract(t *testing.T) {
	contract, err := NewContract(ContractLegacy, LegacyPaths())
	require.NoError(t, err)

	client, fake, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"total_cases":    45,
			"returned_cases": 20,
			"offset":         20,
			"limit":          20,
			"case_summaries": makeCases(20),
		})
	}, Options{Contract: contract})

	res := client.SearchCases(context.Background(), models.SearchRequest{Query: models.SearchQuery{Text: "contract dispute"}, Page: 2})
	require.NotNil(t, res)

	got := fake.last()
	assert.Equal(t, "/api/case_summaries", got.Path)
	assert.Equal(t, url.Values{"search": {"contract dispute"}, "offset": {"20"}, "limit": {"20"}}, got.Query)

	assert.Len(t, res.Cases, 20)
	assert.Equal(t, models.NewPagination(2, 20, 45), res.Pagination)
	assert.Equal(t, "Found 45 cases", rec.All()[0].Message)

	require.NotNil(t, client.SearchCases(context.Background(), models.SearchRequest{}))
	assert.Equal(t, url.Values{"limit": {"20"}}, fake.last().Query)
}

func TestUnknownContract(t *testing.T) {
	_, err := NewContract("graphql", DefaultPaths())
	assert.Error(t, err)
}

func TestGetCaseByIDUsesCache(t *testing.T) {
	cache, err := leveldb.New(time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	client, fake, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cases/42", r.URL.Path)
		writeJSON(w, map[string]any{"success": true, "data": models.NewCaseSummary("42", "2024-042", 4, "abs", "* ext")})
	}, Options{Cache: cache})

	ctx := context.Background()
	first := client.GetCaseByID(ctx, "42")
	require.NotNil(t, first)
	assert.Equal(t, "2024-042", first.CaseID)

	second := client.GetCaseByID(ctx, "42")
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, fake.count())
}

func TestSearchResultsSeedCaseCache(t *testing.T) {
	cache, err := leveldb.New(time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	client, fake, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "data": makeCases(3)})
	}, Options{Cache: cache})

	ctx := context.Background()
	require.NotNil(t, client.SearchCases(ctx, models.SearchRequest{}))
	require.NotNil(t, client.GetCaseByID(ctx, "2"))
	assert.Equal(t, 1, fake.count())
}

func TestGetCaseByIDFailures(t *testing.T) {
	client, _, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, Options{})

	assert.Nil(t, client.GetCaseByID(context.Background(), "missing"))
	assert.Nil(t, client.GetCaseByID(context.Background(), "  "))
	assert.Equal(t, 2, rec.Count(notify.KindError))
}

func TestGetCasesByIDs(t *testing.T) {
	client, _, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/cases/"):]
		if id == "bad" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"success": true, "data": models.NewCaseSummary(id, "c-"+id, 1, "", "")})
	}, Options{})

	got := client.GetCasesByIDs(context.Background(), []string{"1", "bad", "3"}, 2)

	require.Len(t, got, 3)
	require.NotNil(t, got[0])
	assert.Equal(t, "c-1", got[0].CaseID)
	assert.Nil(t, got[1])
	require.NotNil(t, got[2])
	assert.Equal(t, "c-3", got[2].CaseID)
	assert.Equal(t, 1, rec.Count(notify.KindError))
	assert.False(t, client.Loading())
}

func TestGetStatisticsPassThrough(t *testing.T) {
	client, fake, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_cases": 1200, "by_year": {"2024": 300}}`))
	}, Options{})

	stats := client.GetStatistics(context.Background())
	assert.JSONEq(t, `{"total_cases": 1200, "by_year": {"2024": 300}}`, string(stats))
	assert.Equal(t, "/api/statistics", fake.last().Path)
}

func TestWithNotifierSharesLoadingFlag(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Bool

	client, _, base := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		started.Store(true)
		<-release
		writeJSON(w, map[string]any{"success": true, "data": []models.CaseSummary{}})
	}, Options{})

	scoped := &notify.Recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.WithNotifier(scoped).SearchCases(context.Background(), models.SearchRequest{})
	}()

	require.Eventually(t, started.Load, time.Second, 5*time.Millisecond)
	assert.True(t, client.Loading())

	close(release)
	<-done

	assert.False(t, client.Loading())
	assert.Len(t, scoped.All(), 1)
	assert.Empty(t, base.All())
}

func TestOnLoadingObservesDerivedClients(t *testing.T) {
	client, _, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "data": []models.CaseSummary{}})
	}, Options{})

	scoped := client.WithNotifier(&notify.Recorder{})

	var mu sync.Mutex
	var seen []bool
	client.OnLoading(func(loading bool) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, loading)
	})

	require.NotNil(t, scoped.SearchCases(context.Background(), models.SearchRequest{}))

	mu.Lock()
	assert.Equal(t, []bool{true, false}, seen)
	mu.Unlock()

	client.OnLoading(nil)
	require.NotNil(t, scoped.SearchCases(context.Background(), models.SearchRequest{}))
	assert.Len(t, seen, 2)
}

package web

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"casesearch/config"
	"casesearch/internal/domain/models"
	"casesearch/internal/services/api"
	"casesearch/internal/services/form"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	requests []*url.URL
	handler  http.HandlerFunc
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeAPI) last() *url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func listing(n, page, total int) map[string]any {
	cases := make([]models.CaseSummary, n)
	for i := range cases {
		cases[i] = *models.NewCaseSummary(fmt.Sprintf("c%d", i+1), fmt.Sprintf("2024-%03d", i+1), 2,
			"Lease <b>dispute</b> & damages", "* tenant claims\n* landlord denies")
	}
	return map[string]any{
		"success":    true,
		"data":       cases,
		"pagination": models.NewPagination(page, 2, total),
	}
}

func newServer(t *testing.T, handler http.HandlerFunc) (*Server, *fakeAPI) {
	t.Helper()

	fake := &fakeAPI{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.New(log, api.Options{BaseURL: srv.URL})

	h := NewHandler(log, Deps{
		Client:      client,
		PageSize:    2,
		Form:        form.Config{RequireText: true, AutoSubmitDelay: 500 * time.Millisecond},
		VoiceLocale: "ar-SA",
	})

	return New(log, config.HTTPServerConfig{Address: "localhost:0", Timeout: time.Second}, h), fake
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearchPageListsAllCasesByDefault(t *testing.T) {
	s, fake := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, listing(2, 1, 2))
	})

	rec := get(t, s, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/cases", fake.last().Path)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	body := rec.Body.String()
	assert.Contains(t, body, "Found 2 cases")
	assert.Contains(t, body, "Case #2024-001")
	assert.Contains(t, body, "Lease &lt;b&gt;dispute&lt;/b&gt; &amp; damages")
	assert.Contains(t, body, "• tenant claims")
	assert.Contains(t, body, "Search completed")
	assert.NotContains(t, body, `class="pager"`)
}

func TestSearchPageTextQuery(t *testing.T) {
	s, fake := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, listing(2, 2, 9))
	})

	rec := get(t, s, "/?q=dispute&page=2")

	require.Equal(t, http.StatusOK, rec.Code)
	last := fake.last()
	assert.Equal(t, "/cases/search", last.Path)
	assert.Equal(t, "dispute", last.Query().Get("search"))
	assert.Equal(t, "2", last.Query().Get("page"))
	assert.Equal(t, "2", last.Query().Get("page_size"))

	body := rec.Body.String()
	assert.Contains(t, body, "Found 9 cases for &#34;dispute&#34;")
	assert.Contains(t, body, "Page 2 of 5")
	assert.Contains(t, body, "<mark>dispute</mark>")
	assert.Contains(t, body, `class="current">2<`)
	assert.Contains(t, body, "/?page=3&amp;q=dispute")
	assert.Contains(t, body, "/cases/c1?q=dispute")
}

func TestSearchPageDateRange(t *testing.T) {
	s, fake := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, listing(1, 1, 1))
	})

	rec := get(t, s, "/?start=2024-01-01&end=2024-01-31")

	require.Equal(t, http.StatusOK, rec.Code)
	last := fake.last()
	assert.Equal(t, "/cases/date-range", last.Path)
	assert.Equal(t, "2024-01-01", last.Query().Get("start_date"))
	assert.Contains(t, rec.Body.String(), "Searching cases from January 1, 2024 to January 31, 2024")
}

func TestSearchPageInvalidDateRange(t *testing.T) {
	s, fake := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, listing(1, 1, 1))
	})

	rec := get(t, s, "/?start=2024-02-01&end=2024-01-01")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, fake.count())

	body := rec.Body.String()
	assert.Contains(t, body, "Invalid date range")
	assert.Contains(t, body, "Start by entering a search term to find legal cases.")
}

func TestSearchPageAPIFailure(t *testing.T) {
	s, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := get(t, s, "/?q=tax")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, "Failed to fetch case data. Please check the connection and try again.")
}

func TestSearchPageEmptyResults(t *testing.T) {
	s, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "data": []any{}})
	})

	rec := get(t, s, "/?q=nothing")

	assert.Contains(t, rec.Body.String(), "No cases found matching &#34;nothing&#34;")
}

func TestCasePage(t *testing.T) {
	s, fake := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cases/c7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"success": true,
			"data":    models.NewCaseSummary("c7", "2024-007", 5, "Land boundary", "* survey"),
		})
	})

	rec := get(t, s, "/cases/c7?q=land")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/cases/c7", fake.last().Path)
	assert.Contains(t, rec.Body.String(), "Case #2024-007")
	assert.Contains(t, rec.Body.String(), "<mark>Land</mark> boundary")

	rec = get(t, s, "/cases/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Case not found.")
	assert.Contains(t, rec.Body.String(), "Search error")
}

func TestStatistics(t *testing.T) {
	s, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statistics", r.URL.Path)
		writeJSON(w, map[string]any{"total_cases": 12})
	})

	rec := get(t, s, "/statistics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_cases":12}`, rec.Body.String())
}

func TestStatisticsFailure(t *testing.T) {
	s, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := get(t, s, "/statistics")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch statistics")
}

func TestHealth(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestVoiceScriptCarriesLocaleAndDelay(t *testing.T) {
	s, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, listing(0, 1, 0))
	})

	body := get(t, s, "/").Body.String()

	assert.Contains(t, body, `rec.lang = "ar-SA"`)
	assert.Regexp(t, `\}, ?500 ?\);`, body)
	assert.Contains(t, body, "rec.interimResults = true;")
	assert.Contains(t, body, "if (!result.isFinal || delivered) { continue; }")
}

func TestPageParam(t *testing.T) {
	assert.Equal(t, 1, pageParam(""))
	assert.Equal(t, 1, pageParam("0"))
	assert.Equal(t, 1, pageParam("abc"))
	assert.Equal(t, 4, pageParam("4"))
}

func TestHighlightHTMLEscapes(t *testing.T) {
	got := highlightHTML(`<script>tax</script> Tax`, "tax", "")
	assert.Equal(t, "&lt;script&gt;<mark>tax</mark>&lt;/script&gt; <mark>Tax</mark>", string(got))
}

// Package controller owns the search session: the last query, the current
// page of results and the loading flag. Front-ends read snapshots and send
// events; only the controller talks to the API client.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"casesearch/internal/domain/models"
	"casesearch/internal/services/results"
)

type Searcher interface {
	SearchCases(ctx context.Context, req models.SearchRequest) *models.SearchResult
}

// State is a copy; front-ends may keep it.
type State struct {
	Query      models.SearchQuery
	SearchTerm string
	Results    []models.CaseSummary
	Pagination models.Pagination
	Loading    bool
	// Searched is false until the first successful response.
	Searched bool
}

// View renders the state through the results model.
func (s State) View() results.Model {
	return results.Render(results.Input{
		Results:    s.Results,
		Pagination: s.Pagination,
		Loading:    s.Loading,
		SearchTerm: s.SearchTerm,
	})
}

type Controller struct {
	log      *slog.Logger
	searcher Searcher
	pageSize int

	seq      atomic.Uint64
	inflight atomic.Int32

	mu       sync.Mutex
	state    State
	onChange func(State)
}

func New(log *slog.Logger, searcher Searcher, pageSize int) *Controller {
	if pageSize < 1 {
		pageSize = models.DefaultPageSize
	}
	return &Controller{
		log:      log,
		searcher: searcher,
		pageSize: pageSize,
		state:    State{Pagination: models.Pagination{CurrentPage: 1, PageSize: pageSize}},
	}
}

// OnChange registers the observer called after every state transition.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) PageSize() int { return c.pageSize }

// Refresh lists every case, the same as submitting an empty search.
func (c *Controller) Refresh(ctx context.Context) {
	c.Search(ctx, "", nil)
}

// Search starts a new query on page 1. The query becomes the session's
// query only once a response arrives; a failed search leaves the previous
// query, results and pagination in place.
func (c *Controller) Search(ctx context.Context, text string, dateRange *models.DateRange) {
	c.SearchPage(ctx, text, dateRange, 1)
}

// SearchPage starts a new query directly on page, for deep links.
func (c *Controller) SearchPage(ctx context.Context, text string, dateRange *models.DateRange, page int) {
	q := models.SearchQuery{Text: text, DateRange: dateRange}
	c.run(ctx, models.SearchRequest{Query: q, Page: page, PageSize: c.pageSize})
}

// ChangePage re-issues the last query for page. Page is taken as given.
func (c *Controller) ChangePage(ctx context.Context, page int) {
	c.mu.Lock()
	q := c.state.Query
	c.mu.Unlock()

	c.run(ctx, models.SearchRequest{Query: q, Page: page, PageSize: c.pageSize})
}

func (c *Controller) run(ctx context.Context, req models.SearchRequest) {
	seq := c.seq.Add(1)

	c.setLoading(1)
	defer c.setLoading(-1)

	res := c.searcher.SearchCases(ctx, req)
	if res == nil {
		return
	}

	c.mu.Lock()
	if seq != c.seq.Load() {
		c.mu.Unlock()
		c.log.Debug("Discarding stale response", slog.Uint64("seq", seq), slog.Int("page", req.Page))
		return
	}
	c.state.Query = req.Query
	c.state.SearchTerm = req.Query.Text
	c.state.Results = res.Cases
	c.state.Pagination = res.Pagination
	c.state.Searched = true
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) setLoading(delta int32) {
	loading := c.inflight.Add(delta) > 0

	c.mu.Lock()
	changed := c.state.Loading != loading
	c.state.Loading = loading
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	s := c.snapshotLocked()
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Results = append([]models.CaseSummary(nil), c.state.Results...)
	if d := c.state.Query.DateRange; d != nil {
		cp := *d
		s.Query.DateRange = &cp
	}
	return s
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"casesearch/internal/domain/models"
	"casesearch/internal/lib/logger/sl"
	"casesearch/internal/services/notify"
	"casesearch/internal/storage/leveldb"
	"casesearch/internal/utils/metrics"
	"casesearch/internal/workers"

	"github.com/google/uuid"
)

const (
	titleSearchOK    = "Search completed"
	titleSearchError = "Search error"
	msgSearchError   = "Failed to fetch case data. Please check the connection and try again."
)

type CaseCache interface {
	SaveCase(ctx context.Context, c *models.CaseSummary) error
	GetCase(ctx context.Context, id string) (*models.CaseSummary, error)
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Contract Contract
	Notifier notify.Notifier
	Cache    CaseCache
	Metrics  *metrics.Metrics
	// OnLoading observes transitions of the loading flag.
	OnLoading func(loading bool)
	// HTTPClient replaces the default client; Timeout is ignored then.
	HTTPClient *http.Client
}

// Client is the only component that talks to the case-summary API.
// Failures never escape it: they are logged, turned into notifications and
// the call resolves to nil.
type Client struct {
	log      *slog.Logger
	baseURL  string
	http     *http.Client
	contract Contract
	notifier notify.Notifier
	cache    CaseCache
	metrics  *metrics.Metrics
	busy     *busy
}

func New(log *slog.Logger, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	contract := opts.Contract
	if contract == nil {
		contract = &Standard{paths: DefaultPaths()}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	m := opts.Metrics
	if m == nil {
		m = &metrics.Metrics{}
	}

	return &Client{
		log:      log,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     httpClient,
		contract: contract,
		notifier: notifier,
		cache:    opts.Cache,
		metrics:  m,
		busy:     newBusy(opts.OnLoading),
	}
}

// WithNotifier returns a client sharing everything but the notification
// channel.
func (c *Client) WithNotifier(n notify.Notifier) *Client {
	cp := *c
	cp.notifier = n
	return &cp
}

func (c *Client) Loading() bool { return c.busy.loading() }

// OnLoading replaces the observer of loading transitions. Clients derived
// with WithNotifier share it.
func (c *Client) OnLoading(fn func(loading bool)) {
	if fn == nil {
		c.busy.hook.Store(nil)
		return
	}
	c.busy.hook.Store(&fn)
}

func (c *Client) Metrics() metrics.Stats { return c.metrics.Snapshot() }

func (c *Client) Contract() Contract { return c.contract }

// SearchCases picks the endpoint from the query shape. nil means no result.
func (c *Client) SearchCases(ctx context.Context, req models.SearchRequest) *models.SearchResult {
	const op = "api.SearchCases"

	release := c.busy.acquire()
	defer release()

	req = req.WithDefaults()
	path, params := c.contract.Endpoint(req)

	log := c.log.With(slog.String("op", op), slog.String("mode", req.Query.Mode().String()), slog.Int("page", req.Page))

	body, err := c.get(ctx, path, params)
	if err != nil {
		c.fail(log, err)
		return nil
	}

	res, err := c.contract.DecodeList(body, req)
	if err != nil {
		c.fail(log, err)
		return nil
	}

	c.remember(ctx, res.Cases)

	log.Debug("Search completed", slog.Int("returned", len(res.Cases)), slog.Int("total", res.Pagination.TotalItems))
	c.notifier.Notify(notify.KindSuccess, titleSearchOK, fmt.Sprintf("Found %d cases", res.Pagination.TotalItems))

	return res
}

// GetCaseByID serves from the case cache when it can.
func (c *Client) GetCaseByID(ctx context.Context, id string) *models.CaseSummary {
	const op = "api.GetCaseByID"

	release := c.busy.acquire()
	defer release()

	log := c.log.With(slog.String("op", op), slog.String("id", id))

	found, err := c.fetchCase(ctx, id)
	if err != nil {
		c.fail(log, err)
		return nil
	}

	return found
}

// GetCasesByIDs fetches several cases on a bounded worker pool. The result
// is index-aligned with ids; failed lookups are nil.
func (c *Client) GetCasesByIDs(ctx context.Context, ids []string, workersCount int) []*models.CaseSummary {
	const op = "api.GetCasesByIDs"

	release := c.busy.acquire()
	defer release()

	log := c.log.With(slog.String("op", op))

	out := make([]*models.CaseSummary, len(ids))
	var failed atomic.Int32

	type lookup struct {
		index int
		id    string
		found *models.CaseSummary
	}

	pool := workers.New[lookup](c.log, workersCount, func(r workers.Result[lookup]) {
		if r.Err != nil {
			failed.Add(1)
			log.Warn("Case lookup failed", slog.String("id", r.Description.Metadata["id"]), sl.Err(r.Err))
			return
		}
		out[r.Value.index] = r.Value.found
	})

	go pool.Run(ctx)

	for i, id := range ids {
		job := workers.Job[lookup]{
			Description: workers.JobDescriptor{
				ID:       workers.JobID(fmt.Sprintf("case-%d", i)),
				JobType:  "get_case",
				Metadata: map[string]string{"id": id},
			},
			ExecFn: func(ctx context.Context, l lookup) (lookup, error) {
				found, err := c.fetchCase(ctx, l.id)
				l.found = found
				return l, err
			},
			Args: lookup{index: i, id: id},
		}
		if err := pool.AddJob(ctx, job); err != nil {
			failed.Add(int32(len(ids) - i))
			break
		}
	}
	pool.Close()
	<-pool.Done

	if n := failed.Load(); n > 0 {
		c.notifier.Notify(notify.KindError, titleSearchError, fmt.Sprintf("%d of %d cases could not be loaded", n, len(ids)))
	}

	return out
}

// GetStatistics passes the payload through untouched.
func (c *Client) GetStatistics(ctx context.Context) models.Statistics {
	const op = "api.GetStatistics"

	release := c.busy.acquire()
	defer release()

	log := c.log.With(slog.String("op", op))

	body, err := c.get(ctx, c.contract.Paths().Statistics, nil)
	if err != nil {
		c.fail(log, err)
		return nil
	}
	if !json.Valid(body) {
		c.fail(log, &ParseError{Contract: c.contract.Name(), Err: errors.New("statistics payload is not JSON")})
		return nil
	}

	return models.Statistics(body)
}

func (c *Client) fetchCase(ctx context.Context, id string) (*models.CaseSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}

	if c.cache != nil {
		cached, err := c.cache.GetCase(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, leveldb.ErrCaseNotFound) {
			c.log.Warn("Case cache lookup failed", slog.String("id", id), sl.Err(err))
		}
	}

	body, err := c.get(ctx, c.contract.Paths().Case+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	found, err := c.contract.DecodeCase(body)
	if err != nil {
		return nil, err
	}

	c.remember(ctx, []models.CaseSummary{*found})

	return found, nil
}

func (c *Client) remember(ctx context.Context, cases []models.CaseSummary) {
	if c.cache == nil {
		return
	}
	for i := range cases {
		if cases[i].ID == "" {
			continue
		}
		if err := c.cache.SaveCase(ctx, &cases[i]); err != nil {
			c.log.Debug("Failed to cache case", slog.String("id", cases[i].ID), sl.Err(err))
		}
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (body []byte, err error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	start := time.Now()
	defer func() {
		if err != nil {
			c.metrics.RecordFailure(time.Since(start))
			return
		}
		c.metrics.RecordSuccess(time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &NetworkError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Status: resp.StatusCode, URL: endpoint}
	}

	return body, nil
}

func (c *Client) fail(log *slog.Logger, err error) {
	var apiErr *APIError
	var parseErr *ParseError

	switch {
	case errors.As(err, &apiErr):
		log.Warn("API reported failure", sl.Err(err))
	case errors.As(err, &parseErr):
		log.Error("Malformed API response", sl.Err(err))
	default:
		log.Error("API request failed", sl.Err(err))
	}

	c.notifier.Notify(notify.KindError, titleSearchError, msgSearchError)
}

// busy is the loading flag. It stays set while any request is in flight and
// is always released through the func returned by acquire.
type busy struct {
	inflight atomic.Int32
	hook     atomic.Pointer[func(bool)]
}

func newBusy(hook func(bool)) *busy {
	b := &busy{}
	if hook != nil {
		b.hook.Store(&hook)
	}
	return b
}

func (b *busy) emit(loading bool) {
	if fn := b.hook.Load(); fn != nil {
		(*fn)(loading)
	}
}

func (b *busy) acquire() func() {
	if b.inflight.Add(1) == 1 {
		b.emit(true)
	}
	var once atomic.Bool
	return func() {
		if !once.CompareAndSwap(false, true) {
			return
		}
		if b.inflight.Add(-1) == 0 {
			b.emit(false)
		}
	}
}

func (b *busy) loading() bool {
	return b.inflight.Load() > 0
}

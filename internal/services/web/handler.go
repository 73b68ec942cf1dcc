package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"casesearch/internal/domain/models"
	"casesearch/internal/services/api"
	"casesearch/internal/services/controller"
	"casesearch/internal/services/form"
	"casesearch/internal/services/notify"
	"casesearch/internal/services/results"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	Client      *api.Client
	PageSize    int
	Form        form.Config
	Language    string
	VoiceLocale string
}

// Handler renders every request from a fresh controller; the only state
// shared between requests is the API client and its case cache.
type Handler struct {
	log  *slog.Logger
	deps Deps
}

func NewHandler(log *slog.Logger, deps Deps) *Handler {
	if deps.Form.AutoSubmitDelay <= 0 {
		deps.Form.AutoSubmitDelay = form.DefaultAutoSubmitDelay
	}
	return &Handler{log: log, deps: deps}
}

// scoped returns a client whose notifications land in rec as well as the log.
func (h *Handler) scoped(c echo.Context, rec *notify.Recorder) *api.Client {
	log := h.log.With(slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
	return h.deps.Client.WithNotifier(notify.Multi{notify.NewLog(log), rec})
}

// Search handles GET /?q=&start=&end=&page=.
func (h *Handler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	rec := &notify.Recorder{}
	ctrl := controller.New(h.log, h.scoped(c, rec), h.deps.PageSize)

	page := pageParam(c.QueryParam("page"))
	text := strings.TrimSpace(c.QueryParam("q"))
	start, end := c.QueryParam("start"), c.QueryParam("end")

	f := form.New(h.deps.Form, func(text string, dr *models.DateRange) {
		ctrl.SearchPage(ctx, text, dr, page)
	})
	defer f.Close()

	f.SetText(text)
	f.ToggleDateRange(start != "" || end != "")
	f.SetDateRange(start, end)

	if f.DateRangeEnabled() && f.DateRange() == nil {
		rec.Notify(notify.KindError, "Invalid date range", "Dates must be YYYY-MM-DD with the start on or before the end")
	}

	switch {
	case text == "" && !f.DateRangeEnabled():
		ctrl.SearchPage(ctx, "", nil, page)
	case !f.Submit():
		h.log.Debug("Search rejected by form", slog.String("q", text))
	}

	state := ctrl.Snapshot()
	data := searchPage{
		Query:            text,
		Start:            start,
		End:              end,
		DateRangeOn:      f.DateRange() != nil,
		DateRangeLabel:   f.DateRangeLabel(),
		Model:            state.View(),
		Toasts:           rec.All(),
		VoiceLocale:      h.deps.VoiceLocale,
		AutoSubmitMillis: h.deps.Form.AutoSubmitDelay.Milliseconds(),
		language:         h.deps.Language,
	}

	return c.Render(http.StatusOK, "index.html", data)
}

// Case handles GET /cases/:id.
func (h *Handler) Case(c echo.Context) error {
	rec := &notify.Recorder{}
	found := h.scoped(c, rec).GetCaseByID(c.Request().Context(), c.Param("id"))

	data := casePage{
		Query:    strings.TrimSpace(c.QueryParam("q")),
		Toasts:   rec.All(),
		language: h.deps.Language,
	}
	if found == nil {
		return c.Render(http.StatusNotFound, "case.html", data)
	}

	data.Found = true
	data.Card = results.NewCard(*found)

	return c.Render(http.StatusOK, "case.html", data)
}

// Statistics passes the API's statistics payload through.
func (h *Handler) Statistics(c echo.Context) error {
	stats := h.scoped(c, &notify.Recorder{}).GetStatistics(c.Request().Context())
	if stats == nil {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "Failed to fetch statistics",
		})
	}
	return c.JSONBlob(http.StatusOK, stats)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func pageParam(s string) int {
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return models.DefaultPage
	}
	return page
}

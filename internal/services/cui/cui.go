package cui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"casesearch/internal/app"
	"casesearch/internal/domain/models"
	"casesearch/internal/lib/logger/sl"
	"casesearch/internal/services/api"
	"casesearch/internal/services/controller"
	"casesearch/internal/services/form"
	"casesearch/internal/services/notify"
	"casesearch/internal/services/voice"

	"github.com/fatih/color"
	"github.com/jroimartin/gocui"
)

const (
	viewSidebar = "time"
	viewInput   = "input"
	viewDates   = "dates"
	viewOutput  = "output"
	viewStatus  = "status"
	viewDetail  = "detail"
)

var focusOrder = []string{viewInput, viewDates, viewOutput}

type CUI struct {
	ctx      context.Context
	cui      *gocui.Gui
	log      *slog.Logger
	client   *api.Client
	ctrl     *controller.Controller
	form     *form.Form
	voice    *voice.Adapter
	language string
	prefetch int

	mu       sync.Mutex
	status   notify.Notification
	selected int
}

func New(ctx context.Context, log *slog.Logger, a *app.App) (*CUI, error) {
	const op = "cui.New"

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// gocui passes escape sequences through; force colour even though
	// stdout is owned by the terminal UI.
	color.NoColor = false

	c := &CUI{
		ctx:      ctx,
		cui:      g,
		log:      log,
		language: a.Config().Search.HighlightLanguage,
		prefetch: a.Config().Cache.PrefetchWorkers,
	}

	c.client = a.Client.WithNotifier(notify.Multi{notify.NewLog(log), notify.Func(c.setStatus)})
	c.client.OnLoading(func(bool) { c.cui.Update(c.drawSidebar) })
	c.ctrl = a.NewController(c.client)
	c.form = a.NewForm(func(text string, dr *models.DateRange) {
		go c.ctrl.Search(c.ctx, text, dr)
	})

	rec, err := a.NewRecognizer()
	if err != nil {
		log.Warn("Voice search disabled", sl.Err(err))
		rec = nil
	}
	c.voice = voice.NewAdapter(log, rec, notify.Func(c.setStatus), c.voiceUpdate)
	c.voice.OnListeningChange(func(bool) { c.cui.Update(c.drawSidebar) })

	c.ctrl.OnChange(func(s controller.State) {
		c.cui.Update(func(g *gocui.Gui) error { return c.drawState(g, s) })
		if c.prefetch > 0 && !s.Loading && len(s.Results) > 0 {
			go c.warm(s.Results)
		}
	})

	return c, nil
}

func (c *CUI) Close() {
	c.form.Close()
	if err := c.voice.Stop(); err != nil {
		c.log.Debug("Failed to stop voice search", sl.Err(err))
	}
	c.cui.Close()
}

// Start runs the main loop until Ctrl-C. The initial screen lists every case.
func (c *CUI) Start() error {
	c.cui.Cursor = true
	c.cui.SetManagerFunc(c.layout)

	if err := c.bindKeys(); err != nil {
		return err
	}

	go c.ctrl.Refresh(c.ctx)

	if err := c.cui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		c.log.Error("Failed to run GUI", sl.Err(err))
		return err
	}

	return nil
}

func (c *CUI) bindKeys() error {
	const op = "cui.bindKeys"

	bindings := []struct {
		view    string
		key     interface{}
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{"", gocui.KeyCtrlC, quit},
		{"", gocui.KeyTab, c.nextFocus},
		{"", gocui.KeyF2, c.toggleVoice},
		{viewInput, gocui.KeyEnter, c.submit},
		{viewDates, gocui.KeyEnter, c.submit},
		{viewOutput, 'n', c.nextPage},
		{viewOutput, gocui.KeyArrowRight, c.nextPage},
		{viewOutput, 'p', c.previousPage},
		{viewOutput, gocui.KeyArrowLeft, c.previousPage},
		{viewOutput, gocui.KeyArrowDown, c.selectNext},
		{viewOutput, gocui.KeyArrowUp, c.selectPrevious},
		{viewOutput, 'd', c.showCase},
		{viewOutput, 's', c.showStatistics},
		{viewDetail, gocui.KeyEsc, c.closeDetail},
		{viewDetail, 'q', c.closeDetail},
		{viewDetail, gocui.KeyArrowDown, scrollDown},
		{viewDetail, gocui.KeyArrowUp, scrollUp},
	}

	for _, b := range bindings {
		if err := c.cui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			c.log.Error("Failed to set keybinding", slog.String("view", b.view), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (c *CUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if maxX < 40 || maxY < 12 {
		return fmt.Errorf("terminal window is too small")
	}

	if v, err := g.SetView(viewSidebar, 0, 0, maxX/4, maxY-3); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Session"
		v.Wrap = true
		if err := c.drawSidebar(g); err != nil {
			return err
		}
	}

	if v, err := g.SetView(viewInput, maxX/4+1, 0, maxX-1, 2); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Editable = true
		v.Title = "Search"
		_, _ = g.SetCurrentView(viewInput)
	}

	if v, err := g.SetView(viewDates, maxX/4+1, 3, maxX-1, 5); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Editable = true
		v.Title = "Date range (YYYY-MM-DD YYYY-MM-DD, empty for none)"
	}

	if v, err := g.SetView(viewOutput, maxX/4+1, 6, maxX-1, maxY-3); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Results"
		v.Wrap = true
	}

	if v, err := g.SetView(viewStatus, 0, maxY-2, maxX-1, maxY); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Frame = false
	}

	return nil
}

func (c *CUI) submit(g *gocui.Gui, _ *gocui.View) error {
	input, err := g.View(viewInput)
	if err != nil {
		return err
	}
	dates, err := g.View(viewDates)
	if err != nil {
		return err
	}

	start, end, ok := parseDates(dates.Buffer())
	if !ok {
		c.setStatus(notify.KindError, "Invalid date range", "Use YYYY-MM-DD YYYY-MM-DD with start before end")
		return nil
	}

	c.form.SetText(strings.TrimSpace(input.Buffer()))
	c.form.ToggleDateRange(start != "")
	c.form.SetDateRange(start, end)

	if !c.form.Submit() {
		c.setStatus(notify.KindInfo, "Nothing to search", "Enter a search term or a date range")
		return nil
	}

	if label := c.form.DateRangeLabel(); label != "" {
		c.setStatus(notify.KindInfo, "Date range", label)
	}

	return nil
}

func (c *CUI) nextPage(_ *gocui.Gui, _ *gocui.View) error {
	p := c.ctrl.Snapshot().Pagination
	if p.HasNext {
		go c.ctrl.ChangePage(c.ctx, p.CurrentPage+1)
	}
	return nil
}

func (c *CUI) previousPage(_ *gocui.Gui, _ *gocui.View) error {
	p := c.ctrl.Snapshot().Pagination
	if p.HasPrevious {
		go c.ctrl.ChangePage(c.ctx, p.CurrentPage-1)
	}
	return nil
}

func (c *CUI) selectNext(g *gocui.Gui, _ *gocui.View) error {
	return c.moveSelection(g, 1)
}

func (c *CUI) selectPrevious(g *gocui.Gui, _ *gocui.View) error {
	return c.moveSelection(g, -1)
}

func (c *CUI) moveSelection(g *gocui.Gui, delta int) error {
	s := c.ctrl.Snapshot()
	if len(s.Results) == 0 {
		return nil
	}

	c.mu.Lock()
	c.selected = max(0, min(len(s.Results)-1, c.selected+delta))
	c.mu.Unlock()

	return c.drawState(g, s)
}

func (c *CUI) showCase(g *gocui.Gui, _ *gocui.View) error {
	s := c.ctrl.Snapshot()

	c.mu.Lock()
	i := c.selected
	c.mu.Unlock()

	if i >= len(s.Results) {
		return nil
	}
	id := s.Results[i].ID

	go func() {
		found := c.client.GetCaseByID(c.ctx, id)
		if found == nil {
			return
		}
		g.Update(func(g *gocui.Gui) error {
			v, err := c.openDetail(g, "Case #"+found.CaseID)
			if err != nil {
				return err
			}
			WriteCase(v, found, s.SearchTerm, c.language)
			return nil
		})
	}()

	return nil
}

func (c *CUI) showStatistics(g *gocui.Gui, _ *gocui.View) error {
	go func() {
		stats := c.client.GetStatistics(c.ctx)
		if stats == nil {
			return
		}
		g.Update(func(g *gocui.Gui) error {
			v, err := c.openDetail(g, "Statistics")
			if err != nil {
				return err
			}
			writeStatistics(v, stats)
			return nil
		})
	}()
	return nil
}

func (c *CUI) openDetail(g *gocui.Gui, title string) (*gocui.View, error) {
	maxX, maxY := g.Size()

	v, err := g.SetView(viewDetail, maxX/8, maxY/8, maxX-maxX/8, maxY-maxY/8)
	if err != nil && !errors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	v.Title = title + " (Esc to close)"
	v.Wrap = true
	v.Clear()
	_ = v.SetOrigin(0, 0)

	if _, err := g.SetViewOnTop(viewDetail); err != nil {
		return nil, err
	}
	if _, err := g.SetCurrentView(viewDetail); err != nil {
		return nil, err
	}

	return v, nil
}

func (c *CUI) closeDetail(g *gocui.Gui, _ *gocui.View) error {
	if err := g.DeleteView(viewDetail); err != nil {
		return err
	}
	_, err := g.SetCurrentView(viewOutput)
	return err
}

func (c *CUI) toggleVoice(_ *gocui.Gui, _ *gocui.View) error {
	if !c.voice.Supported() {
		c.setStatus(notify.KindInfo, "Voice search unavailable", "Please use text search instead")
		return nil
	}

	if c.voice.Listening() {
		if err := c.voice.Stop(); err != nil {
			c.log.Warn("Failed to stop voice search", sl.Err(err))
		}
		return nil
	}

	if err := c.voice.Start(c.ctx); err != nil {
		c.log.Debug("Voice search did not start", sl.Err(err))
	}
	return nil
}

// voiceUpdate mirrors the transcript into the search field; the form
// submits it after its auto-submit delay.
func (c *CUI) voiceUpdate(text string) {
	c.form.VoiceUpdate(text)
	c.cui.Update(func(g *gocui.Gui) error {
		v, err := g.View(viewInput)
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprint(v, text)
		_ = v.SetCursor(len([]rune(text)), 0)
		return nil
	})
}

func (c *CUI) nextFocus(g *gocui.Gui, _ *gocui.View) error {
	if _, err := g.View(viewDetail); err == nil {
		return nil
	}

	current := ""
	if v := g.CurrentView(); v != nil {
		current = v.Name()
	}

	next := focusOrder[0]
	for i, name := range focusOrder {
		if name == current {
			next = focusOrder[(i+1)%len(focusOrder)]
			break
		}
	}

	_, err := g.SetCurrentView(next)
	return err
}

func (c *CUI) drawState(g *gocui.Gui, s controller.State) error {
	v, err := g.View(viewOutput)
	if err != nil {
		return err
	}
	v.Clear()

	c.mu.Lock()
	if c.selected >= len(s.Results) {
		c.selected = 0
	}
	selected := c.selected
	c.mu.Unlock()

	starts := WriteResults(v, s.View(), selected, s.SearchTerm, c.language)

	origin := 0
	if selected < len(starts) {
		origin = starts[selected]
	}
	if err := v.SetOrigin(0, origin); err != nil {
		return err
	}

	return c.drawSidebar(g)
}

func (c *CUI) drawSidebar(g *gocui.Gui) error {
	v, err := g.View(viewSidebar)
	if err != nil {
		return err
	}
	v.Clear()
	writeSidebar(v, c.client.Metrics(), c.client.Loading(), c.ctrl.Snapshot().Query, voiceLabel(c.voice.Supported(), c.voice.State().String()))
	return nil
}

func (c *CUI) setStatus(kind notify.Kind, title, message string) {
	c.mu.Lock()
	c.status = notify.Notification{Kind: kind, Title: title, Message: message}
	n := c.status
	c.mu.Unlock()

	c.cui.Update(func(g *gocui.Gui) error {
		v, err := g.View(viewStatus)
		if err != nil {
			return err
		}
		w, _ := v.Size()
		v.Clear()
		fmt.Fprint(v, statusLine(n, w))
		return nil
	})
}

// warm loads the visible cases into the case cache so details open
// without a round trip.
func (c *CUI) warm(cases []models.CaseSummary) {
	ids := make([]string, 0, len(cases))
	for _, cs := range cases {
		ids = append(ids, cs.ID)
	}
	c.client.GetCasesByIDs(c.ctx, ids, c.prefetch)
}

func scrollDown(_ *gocui.Gui, v *gocui.View) error {
	_, oy := v.Origin()
	_, sy := v.Size()

	if oy+sy < len(v.BufferLines()) {
		return v.SetOrigin(0, oy+1)
	}
	return nil
}

func scrollUp(_ *gocui.Gui, v *gocui.View) error {
	_, oy := v.Origin()
	if oy > 0 {
		return v.SetOrigin(0, oy-1)
	}
	return nil
}

func quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

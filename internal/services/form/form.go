package form

import (
	"strings"
	"sync"
	"time"

	"casesearch/internal/domain/models"
)

const DefaultAutoSubmitDelay = 500 * time.Millisecond

type OnSearch func(text string, dateRange *models.DateRange)

type Config struct {
	// RequireText rejects submissions whose trimmed text is empty, unless a
	// complete date range is active.
	RequireText     bool
	AutoSubmitDelay time.Duration
}

// Form holds the user's pending query: the text field and an optional date
// range toggled on by the user.
type Form struct {
	cfg      Config
	onSearch OnSearch

	mu          sync.Mutex
	text        string
	dateRangeOn bool
	start       string
	end         string
	timers      map[*time.Timer]struct{}
}

func New(cfg Config, onSearch OnSearch) *Form {
	if cfg.AutoSubmitDelay <= 0 {
		cfg.AutoSubmitDelay = DefaultAutoSubmitDelay
	}
	return &Form{cfg: cfg, onSearch: onSearch}
}

func (f *Form) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func (f *Form) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

func (f *Form) ToggleDateRange(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dateRangeOn = on
}

func (f *Form) DateRangeEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dateRangeOn
}

// SetDateRange stores both ends as typed (YYYY-MM-DD).
func (f *Form) SetDateRange(start, end string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start = start
	f.end = end
}

// DateRange is nil unless the range is toggled on and both ends parse.
func (f *Form) DateRange() *models.DateRange {
	f.mu.Lock()
	on, start, end := f.dateRangeOn, f.start, f.end
	f.mu.Unlock()

	if !on || strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil
	}
	dr, err := models.ParseDateRange(start, end)
	if err != nil {
		return nil
	}
	return dr
}

func (f *Form) DateRangeLabel() string {
	return f.DateRange().Label()
}

// Submit reports whether onSearch was invoked.
func (f *Form) Submit() bool {
	return f.submit(f.Text())
}

// VoiceUpdate mirrors a transcript into the text field and submits it after
// the auto-submit delay. A manual Submit in between is not de-duplicated.
func (f *Form) VoiceUpdate(transcript string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.text = transcript
	if f.timers == nil {
		f.timers = make(map[*time.Timer]struct{})
	}

	var t *time.Timer
	t = time.AfterFunc(f.cfg.AutoSubmitDelay, func() {
		f.mu.Lock()
		delete(f.timers, t)
		f.mu.Unlock()

		f.submit(transcript)
	})
	f.timers[t] = struct{}{}
}

func (f *Form) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Close cancels pending auto-submits.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for t := range f.timers {
		t.Stop()
	}
	f.timers = nil
}

func (f *Form) submit(text string) bool {
	text = strings.TrimSpace(text)
	dr := f.DateRange()

	if f.cfg.RequireText && text == "" && dr == nil {
		return false
	}

	if f.onSearch != nil {
		f.onSearch(text, dr)
	}
	return true
}

package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20

	DateLayout = "2006-01-02"
)

type Mode int

const (
	ModeList Mode = iota
	ModeText
	ModeDateRange
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeDateRange:
		return "date_range"
	default:
		return "list"
	}
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates. Start must not be after end.
func ParseDateRange(start, end string) (*DateRange, error) {
	const op = "models.ParseDateRange"

	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return nil, fmt.Errorf("%s: start: %w", op, err)
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return nil, fmt.Errorf("%s: end: %w", op, err)
	}
	if s.After(e) {
		return nil, fmt.Errorf("%s: start %s is after end %s", op, start, end)
	}

	return &DateRange{Start: s, End: e}, nil
}

func (d *DateRange) Complete() bool {
	return d != nil && !d.Start.IsZero() && !d.End.IsZero()
}

func (d *DateRange) StartParam() string { return d.Start.Format(DateLayout) }
func (d *DateRange) EndParam() string   { return d.End.Format(DateLayout) }

// Label is the confirmation line shown when a date range is active.
func (d *DateRange) Label() string {
	if !d.Complete() {
		return ""
	}
	return fmt.Sprintf("Searching cases from %s to %s",
		d.Start.Format("January 2, 2006"), d.End.Format("January 2, 2006"))
}

type SearchQuery struct {
	Text      string
	DateRange *DateRange
}

// Mode selects the endpoint family. A date range wins over text.
func (q SearchQuery) Mode() Mode {
	if q.DateRange.Complete() {
		return ModeDateRange
	}
	if strings.TrimSpace(q.Text) != "" {
		return ModeText
	}
	return ModeList
}

type SearchRequest struct {
	Query    SearchQuery
	Page     int
	PageSize int
}

func (r SearchRequest) WithDefaults() SearchRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	return r
}

// Package results turns search state into a render model shared by the
// terminal and browser front-ends. It holds no state of its own.
package results

import (
	"fmt"
	"regexp"
	"strings"

	"casesearch/internal/domain/models"
)

const (
	SkeletonCount = 3
	WindowSize    = 5
	Bullet        = "• "
)

type State int

const (
	StateLoading State = iota
	StateEmpty
	StatePopulated
)

type Input struct {
	Results    []models.CaseSummary
	Pagination models.Pagination
	Loading    bool
	SearchTerm string
}

type Card struct {
	ID          string
	Title       string
	Documents   string
	Abstractive string
	Bullets     []string
}

type PageButton struct {
	Page    int
	Current bool
}

type NavButton struct {
	Page     int
	Disabled bool
}

type Pager struct {
	Previous NavButton
	Pages    []PageButton
	Next     NavButton
}

type Model struct {
	State        State
	Skeletons    int
	EmptyMessage string
	Header       string
	Badge        string
	Cards        []Card
	// Pager is nil when everything fits on one page.
	Pager *Pager
}

func Render(in Input) Model {
	if in.Loading {
		return Model{State: StateLoading, Skeletons: SkeletonCount}
	}

	if len(in.Results) == 0 {
		return Model{State: StateEmpty, EmptyMessage: EmptyMessage(in.SearchTerm)}
	}

	p := in.Pagination
	m := Model{
		State:  StatePopulated,
		Header: Header(p.TotalItems, in.SearchTerm),
		Badge:  fmt.Sprintf("Page %d of %d", p.CurrentPage, p.TotalPages),
		Cards:  make([]Card, 0, len(in.Results)),
	}

	for _, c := range in.Results {
		m.Cards = append(m.Cards, NewCard(c))
	}

	if p.TotalPages > 1 {
		pager := NewPager(p)
		m.Pager = &pager
	}

	return m
}

func EmptyMessage(searchTerm string) string {
	if searchTerm != "" {
		return `No cases found matching "` + searchTerm + `". Try different keywords or adjust your search criteria.`
	}
	return "Start by entering a search term to find legal cases."
}

func Header(totalItems int, searchTerm string) string {
	if searchTerm == "" {
		return fmt.Sprintf("Found %d cases", totalItems)
	}
	return fmt.Sprintf(`Found %d cases for "%s"`, totalItems, searchTerm)
}

func NewCard(c models.CaseSummary) Card {
	return Card{
		ID:          c.ID,
		Title:       "Case #" + c.CaseID,
		Documents:   fmt.Sprintf("%d documents", c.TotalDocuments),
		Abstractive: c.AbstractiveSummary,
		Bullets:     ExtractiveLines(c.ExtractiveSummary),
	}
}

// NewPager builds the numbered window plus Previous/Next. Targets are not
// clamped; bounds are the caller's business.
func NewPager(p models.Pagination) Pager {
	pager := Pager{
		Previous: NavButton{Page: p.CurrentPage - 1, Disabled: !p.HasPrevious},
		Next:     NavButton{Page: p.CurrentPage + 1, Disabled: !p.HasNext},
	}
	for _, n := range Window(p.CurrentPage, p.TotalPages) {
		pager.Pages = append(pager.Pages, PageButton{Page: n, Current: n == p.CurrentPage})
	}
	return pager
}

// Window returns min(5, total) page numbers centered on current where the
// bounds allow it. Near the last page the window slides back so it stays
// full, so its first page is min(max(1, current-2), total-4) rather than
// max(1, current-2).
func Window(current, total int) []int {
	start := max(1, min(current-2, total-WindowSize+1))
	end := min(total, start+WindowSize-1)

	pages := make([]int, 0, WindowSize)
	for n := start; n <= end; n++ {
		if n >= 1 && n <= total {
			pages = append(pages, n)
		}
	}
	return pages
}

var bulletMarker = regexp.MustCompile(`^\*\s*`)

// ExtractiveLines splits on newlines, drops blank lines and rewrites a
// leading "*" marker into a bullet.
func ExtractiveLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, bulletMarker.ReplaceAllString(line, Bullet))
	}
	return lines
}

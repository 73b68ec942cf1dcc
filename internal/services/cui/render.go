package cui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"casesearch/internal/domain/models"
	"casesearch/internal/services/notify"
	"casesearch/internal/services/results"
	"casesearch/internal/utils/clean"
	"casesearch/internal/utils/format"
	"casesearch/internal/utils/metrics"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	headerColor   = color.New(color.FgYellow)
	titleColor    = color.New(color.FgGreen, color.Bold)
	dimColor      = color.New(color.FgHiBlack)
	markColor     = color.New(color.FgRed, color.Bold)
	selectedColor = color.New(color.FgBlack, color.BgGreen)
	errorColor    = color.New(color.FgRed)
	successColor  = color.New(color.FgGreen)
)

const skeletonLine = "░░░░░░░░░░░░░░░░░░░░░░░░"

// WriteResults prints the results model and returns the first line of every
// card so the caller can scroll to the selected one. selected < 0 marks
// nothing.
func WriteResults(w io.Writer, m results.Model, selected int, term, language string) []int {
	line := 0
	writeLine := func(s string) {
		fmt.Fprintln(w, s)
		line += strings.Count(s, "\n") + 1
	}

	switch m.State {
	case results.StateLoading:
		for i := 0; i < m.Skeletons; i++ {
			writeLine(dimColor.Sprint(skeletonLine))
			writeLine(dimColor.Sprint(strings.Repeat("░", 12)))
			writeLine("")
		}
		return nil
	case results.StateEmpty:
		writeLine(m.EmptyMessage)
		return nil
	}

	writeLine(headerColor.Sprint(m.Header) + "  " + dimColor.Sprint(m.Badge))
	writeLine("")

	starts := make([]int, 0, len(m.Cards))
	for i, card := range m.Cards {
		starts = append(starts, line)

		title := card.Title + "  " + dimColor.Sprint(card.Documents)
		if i == selected {
			title = selectedColor.Sprint("> "+card.Title) + "  " + dimColor.Sprint(card.Documents)
		}
		writeLine(titleColor.Sprint(title))
		writeLine(highlight(clean.Text(card.Abstractive), term, language))
		for _, b := range card.Bullets {
			writeLine("  " + highlight(clean.Line(b), term, language))
		}
		writeLine("")
	}

	if m.Pager != nil {
		writeLine(pagerLine(*m.Pager))
	}

	return starts
}

func pagerLine(p results.Pager) string {
	nav := func(label string, b results.NavButton) string {
		if b.Disabled {
			return dimColor.Sprint(label)
		}
		return label
	}

	parts := []string{nav("[p] Previous", p.Previous)}
	for _, b := range p.Pages {
		if b.Current {
			parts = append(parts, headerColor.Sprintf("[%d]", b.Page))
			continue
		}
		parts = append(parts, fmt.Sprintf(" %d ", b.Page))
	}
	parts = append(parts, nav("Next [n]", p.Next))

	return strings.Join(parts, " ")
}

func highlight(text, term, language string) string {
	return results.Highlight(text, term, language, func(s string) string {
		return markColor.Sprint(s)
	})
}

func writeSidebar(w io.Writer, s metrics.Stats, loading bool, q models.SearchQuery, voiceState string) {
	fmt.Fprintln(w, headerColor.Sprint("Query"))
	fmt.Fprintf(w, "Mode: %s\n", q.Mode())
	if q.DateRange.Complete() {
		fmt.Fprintf(w, "From: %s\nTo:   %s\n", q.DateRange.StartParam(), q.DateRange.EndParam())
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerColor.Sprint("Requests"))
	if loading {
		fmt.Fprintln(w, headerColor.Sprint("Loading…"))
	} else {
		fmt.Fprintln(w, dimColor.Sprint("Ready"))
	}
	fmt.Fprintf(w, "Total:  %d\n", s.Total)
	fmt.Fprintf(w, "OK:     %s\n", successColor.Sprint(s.Successful))
	fmt.Fprintf(w, "Failed: %s\n", errorColor.Sprint(s.Failed))
	fmt.Fprintf(w, "Avg:    %s\n", format.Duration(s.AvgDuration))
	fmt.Fprintf(w, "Last:   %s\n", format.Duration(s.LastElapsed))
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerColor.Sprint("Voice"))
	fmt.Fprintln(w, voiceState)
	fmt.Fprintln(w)

	fmt.Fprintln(w, dimColor.Sprint("Enter search  Tab focus\nn/p ←/→ page  ↑/↓ select\nd details  s statistics\nF2 voice  Ctrl-C quit"))
}

// statusLine fits a notification into width terminal cells.
func statusLine(n notify.Notification, width int) string {
	if n.Title == "" && n.Message == "" {
		return ""
	}

	text := clean.Line(n.Title)
	if n.Message != "" {
		text += ": " + clean.Line(n.Message)
	}
	text = runewidth.Truncate(text, width, "…")

	switch n.Kind {
	case notify.KindError:
		return errorColor.Sprint(text)
	case notify.KindSuccess:
		return successColor.Sprint(text)
	}
	return text
}

func WriteCase(w io.Writer, c *models.CaseSummary, term, language string) {
	card := results.NewCard(*c)

	fmt.Fprintln(w, titleColor.Sprint(card.Title))
	fmt.Fprintf(w, "%s  %s\n\n", dimColor.Sprint("id "+c.ID), dimColor.Sprint(card.Documents))
	fmt.Fprintln(w, headerColor.Sprint("Summary"))
	fmt.Fprintln(w, highlight(clean.Text(card.Abstractive), term, language))
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerColor.Sprint("Key points"))
	for _, b := range card.Bullets {
		fmt.Fprintln(w, highlight(clean.Line(b), term, language))
	}
}

func writeStatistics(w io.Writer, stats models.Statistics) {
	var out bytes.Buffer
	if err := json.Indent(&out, stats, "", "  "); err != nil {
		fmt.Fprintln(w, string(stats))
		return
	}
	fmt.Fprintln(w, out.String())
}

// parseDates reads the date field: two YYYY-MM-DD values separated by
// whitespace, or nothing. ok is false for anything else.
func parseDates(buf string) (start, end string, ok bool) {
	fields := strings.Fields(buf)
	switch len(fields) {
	case 0:
		return "", "", true
	case 2:
		if _, err := models.ParseDateRange(fields[0], fields[1]); err != nil {
			return "", "", false
		}
		return fields[0], fields[1], true
	}
	return "", "", false
}

func voiceLabel(supported bool, state string) string {
	if !supported {
		return dimColor.Sprint("unavailable")
	}
	if state == "listening" {
		return errorColor.Sprint("● listening")
	}
	return state + " (F2)"
}

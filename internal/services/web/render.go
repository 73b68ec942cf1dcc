package web

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"casesearch/internal/services/notify"
	"casesearch/internal/services/results"
	"casesearch/internal/utils/clean"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Template adapts html/template to echo.Renderer.
type Template struct {
	templates *template.Template
}

func NewTemplate() *Template {
	return &Template{templates: template.Must(template.ParseFS(templatesFS, "templates/*.html"))}
}

func (t *Template) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// clean.Text drops private-use runes, which leaves them free to carry the
// highlight markers through HTML escaping.
const (
	markOpen  = "\uE000"
	markClose = "\uE001"
)

var markReplacer = strings.NewReplacer(markOpen, "<mark>", markClose, "</mark>")

func highlightHTML(text, term, language string) template.HTML {
	marked := results.Highlight(clean.Text(text), term, language, func(w string) string {
		return markOpen + w + markClose
	})
	return template.HTML(markReplacer.Replace(template.HTMLEscapeString(marked)))
}

type searchPage struct {
	Query            string
	Start            string
	End              string
	DateRangeOn      bool
	DateRangeLabel   string
	Model            results.Model
	Toasts           []notify.Notification
	VoiceLocale      string
	AutoSubmitMillis int64

	language string
}

// PageURL links to page of the current query.
func (p searchPage) PageURL(page int) string {
	v := url.Values{}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.DateRangeOn {
		v.Set("start", p.Start)
		v.Set("end", p.End)
	}
	v.Set("page", strconv.Itoa(page))
	return "/?" + v.Encode()
}

func (p searchPage) Mark(text string) template.HTML {
	return highlightHTML(text, p.Query, p.language)
}

func (p searchPage) CardView(card results.Card) casePage {
	return casePage{Found: true, Card: card, Query: p.Query, language: p.language}
}

func (p searchPage) SkeletonSlots() []struct{} {
	return make([]struct{}, p.Model.Skeletons)
}

type casePage struct {
	Found  bool
	Card   results.Card
	Query  string
	Toasts []notify.Notification

	language string
}

func (p casePage) Mark(text string) template.HTML {
	return highlightHTML(text, p.Query, p.language)
}

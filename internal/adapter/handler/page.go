package handler

import (
	"embed"
	"html/template"
	"net/url"

	"github.com/rl1809/pantry-tracker/internal/core/domain"
)

//go:embed templates/page.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFiles, "templates/page.html"))

// PageState is everything the inventory page renders. It is built per
// request from the query string and the last known list.
type PageState struct {
	Items      domain.InventoryList
	SearchTerm string
	ModalOpen  bool
}

func newPageState(all domain.InventoryList, query url.Values) PageState {
	term := query.Get("q")
	return PageState{
		Items:      all.Filter(term),
		SearchTerm: term,
		ModalOpen:  query.Get("modal") == "add",
	}
}

// AddURL opens the add modal, keeping the search term.
func (p PageState) AddURL() string {
	q := url.Values{"modal": {"add"}}
	if p.SearchTerm != "" {
		q.Set("q", p.SearchTerm)
	}
	return "/?" + q.Encode()
}

// CloseURL goes back to the list, keeping the search term.
func (p PageState) CloseURL() string {
	return pageURL(p.SearchTerm)
}

func pageURL(term string) string {
	if term == "" {
		return "/"
	}
	return "/?" + url.Values{"q": {term}}.Encode()
}

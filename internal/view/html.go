package view

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Element ids and affordance roles shared by the templates and the page
// script.
const (
	ListID   = "todo-list"
	AddID    = "add-btn"
	InputID  = "todo-input"
	SearchID = "search"

	RoleEdit   = "edit"
	RoleDelete = "delete"
	RoleToggle = "toggle"
)

// Page is the data rendered into the full HTML document.
type Page struct {
	Title      string
	Input      string
	Query      string
	Items      []Item
	SocketPath string
	ActionPath string
}

// HTMLRenderer renders items and pages from the embedded templates.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer returns a renderer over the embedded templates.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: templates}
}

// RenderItem writes one <li> for it.
func (r *HTMLRenderer) RenderItem(w io.Writer, it Item) error {
	return r.tmpl.ExecuteTemplate(w, "item", it)
}

// RenderList writes the <li> elements for items, in order.
func (r *HTMLRenderer) RenderList(w io.Writer, items []Item) error {
	return r.tmpl.ExecuteTemplate(w, "items", items)
}

// RenderPage writes the full HTML document.
func (r *HTMLRenderer) RenderPage(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = "To-Do List"
	}
	if p.SocketPath == "" {
		p.SocketPath = "/ws"
	}
	if p.ActionPath == "" {
		p.ActionPath = "/actions"
	}
	return r.tmpl.ExecuteTemplate(w, "page", p)
}

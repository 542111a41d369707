package decor

import (
	"github.com/dgallion1/pagedeco/internal/page"
)

// LoadCSS adds a stylesheet link to the head unless one with the same href
// is already there.
func (l *Library) LoadCSS(p *page.Page, href string) {
	head := p.Head()
	existing := page.Find(head, page.All(
		page.Tag("link"),
		page.AttrEquals("rel", "stylesheet"),
		page.AttrEquals("href", href),
	))
	if existing != nil {
		return
	}
	head.AppendChild(page.Element("link", "rel", "stylesheet", "href", href))
}

// AddFavIcon sets the page icon, replacing any existing icon link.
func AddFavIcon(p *page.Page, href string) {
	link := page.Element("link", "rel", "icon", "type", "image/svg+xml", "href", href)
	head := p.Head()
	if existing := page.Find(head, page.All(page.Tag("link"), page.AttrEquals("rel", "icon"))); existing != nil {
		page.ReplaceWith(existing, link)
		return
	}
	head.AppendChild(link)
}

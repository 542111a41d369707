package page

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is the mutable model of one HTML document. Every component of a page
// load receives the same *Page and mutates its tree in place.
//
// A Page is not safe for concurrent mutation. Work that runs outside the
// page-load goroutine (the delayed phase, route changes triggered by API
// calls) must go through Exclusive.
type Page struct {
	mu  sync.Mutex
	doc *html.Node

	scrollTarget *html.Node
}

// New wraps an already parsed document node.
func New(doc *html.Node) *Page {
	return &Page{doc: doc}
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return New(doc), nil
}

// Document returns the document node.
func (p *Page) Document() *html.Node {
	return p.doc
}

// Root returns the <html> element, creating it if the document has none.
func (p *Page) Root() *html.Node {
	for c := p.doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	root := Element("html")
	p.doc.AppendChild(root)
	return root
}

// Head returns the <head> element, creating it if missing.
func (p *Page) Head() *html.Node {
	return p.ensureChild(atom.Head, true)
}

// Body returns the <body> element, creating it if missing.
func (p *Page) Body() *html.Node {
	return p.ensureChild(atom.Body, false)
}

func (p *Page) ensureChild(a atom.Atom, first bool) *html.Node {
	root := p.Root()
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	n := Element(a.String())
	if first {
		Prepend(root, n)
	} else {
		root.AppendChild(n)
	}
	return n
}

// Main returns the main content region, or nil when the page has none.
func (p *Page) Main() *html.Node {
	return Find(p.Body(), Tag("main"))
}

// Header returns the page <header> element, or nil.
func (p *Page) Header() *html.Node {
	return Find(p.Body(), Tag("header"))
}

// Footer returns the page <footer> element, or nil.
func (p *Page) Footer() *html.Node {
	return Find(p.Body(), Tag("footer"))
}

// Title returns the text of the <title> element.
func (p *Page) Title() string {
	if t := Find(p.Head(), Tag("title")); t != nil {
		return TextContent(t)
	}
	return ""
}

// SetTitle replaces or creates the <title> element.
func (p *Page) SetTitle(title string) {
	head := p.Head()
	t := Find(head, Tag("title"))
	if t == nil {
		t = Element("title")
		head.AppendChild(t)
	}
	for t.FirstChild != nil {
		t.RemoveChild(t.FirstChild)
	}
	t.AppendChild(Text(title))
}

// Meta returns the content of <meta name=...> or <meta property=...>.
func (p *Page) Meta(name string) string {
	attr := "name"
	if len(name) > 3 && name[:3] == "og:" {
		attr = "property"
	}
	m := Find(p.Head(), func(n *html.Node) bool {
		return n.DataAtom == atom.Meta && Attr(n, attr) == name
	})
	if m == nil {
		return ""
	}
	return Attr(m, "content")
}

// SetLang sets the document language on <html>.
func (p *Page) SetLang(lang string) {
	SetAttr(p.Root(), "lang", lang)
}

// ElementByID returns the first element whose id equals id.
func (p *Page) ElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return Find(p.doc, func(n *html.Node) bool { return Attr(n, "id") == id })
}

// ScrollIntoView records n as the element the viewport should start at.
func (p *Page) ScrollIntoView(n *html.Node) {
	p.scrollTarget = n
}

// ScrollTarget returns the element last passed to ScrollIntoView.
func (p *Page) ScrollTarget() *html.Node {
	return p.scrollTarget
}

// Exclusive runs fn while holding the page lock.
func (p *Page) Exclusive(fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn()
}

// Render serializes the document.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return html.Render(w, p.doc)
}

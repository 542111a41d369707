package autoblock

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/router"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrMissingHeading means a section has no h3 to title its tab.
	ErrMissingHeading = errors.New("autoblock: section has no h3 heading")
	// ErrUnknownSection means a fragment names no tab.
	ErrUnknownSection = errors.New("autoblock: no section matches fragment")
)

const (
	hiddenClass = "visuallyhidden"
	activeClass = "active"
)

// TabID derives the fragment identifier of a tab from its title: lower case,
// with the first space (only) replaced by a hyphen. "Our Great Story" yields
// "our-great story"; published links depend on this exact form.
func TabID(title string) string {
	return strings.Replace(strings.ToLower(title), " ", "-", 1)
}

// Section is one tab's content region.
type Section struct {
	Node  *html.Node
	Title string
	ID    string
}

// Visible reports whether the section is currently shown.
func (s Section) Visible() bool {
	return !page.HasClass(s.Node, hiddenClass)
}

// Tabs is the tab navigation built over the sections of a page.
type Tabs struct {
	nav         *html.Node
	sections    []Section
	links       []*html.Node
	unsubscribe func()
}

// BuildTabNavigation turns the div children of main into tabs. Every section
// must contain an h3, whose text becomes the tab title; otherwise
// ErrMissingHeading is returned and main is left untouched. The first
// section is shown and the others hidden, a nav.tab-nav with one link per
// section is put first in main, and route changes from r switch the visible
// section. When r already has a route it is applied immediately, and a
// failure to apply it is returned with the built tabs.
func BuildTabNavigation(main *html.Node, r router.Router, log *slog.Logger) (*Tabs, error) {
	if log == nil {
		log = slog.Default()
	}
	var sections []Section
	for _, el := range page.ChildElements(main) {
		if el.DataAtom != atom.Div {
			continue
		}
		h3 := page.Find(el, page.Tag("h3"))
		if h3 == nil {
			return nil, fmt.Errorf("%w: section %d", ErrMissingHeading, len(sections))
		}
		title := page.TextContent(h3)
		sections = append(sections, Section{Node: el, Title: title, ID: TabID(title)})
	}

	for i, s := range sections {
		if i > 0 {
			page.AddClass(s.Node, hiddenClass)
		}
	}

	nav := page.Element("nav", "class", "tab-nav", "role", "tablist")
	links := make([]*html.Node, 0, len(sections))
	for i, s := range sections {
		a := page.Element("a", "href", "#"+s.ID)
		a.AppendChild(page.Text(s.Title))
		if i == 0 {
			page.AddClass(a, activeClass)
		}
		nav.AppendChild(a)
		links = append(links, a)
	}
	page.Prepend(main, nav)

	t := &Tabs{nav: nav, sections: sections, links: links}
	t.unsubscribe = r.OnRouteChange(func(fragment string) {
		if fragment == "" {
			return
		}
		if err := t.Activate(fragment); err != nil {
			log.Warn("tab activation failed", "fragment", fragment, "error", err)
		}
	})

	if initial := r.CurrentRoute(); initial != "" {
		if err := t.Activate(initial); err != nil {
			return t, err
		}
	}
	return t, nil
}

// Activate shows the section whose "#"+ID equals fragment, hides the others
// and moves the active marker to its link. A fragment naming no section
// returns ErrUnknownSection and changes nothing. With duplicate titles the
// first matching section wins.
func (t *Tabs) Activate(fragment string) error {
	idx := t.indexOf(fragment)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownSection, fragment)
	}

	for _, a := range t.links {
		page.RemoveClass(a, activeClass)
	}
	for i, s := range t.sections {
		if i == idx {
			page.RemoveClass(s.Node, hiddenClass)
		} else {
			page.AddClass(s.Node, hiddenClass)
		}
	}
	page.AddClass(t.links[idx], activeClass)
	return nil
}

func (t *Tabs) indexOf(fragment string) int {
	for i, s := range t.sections {
		if "#"+s.ID == fragment {
			return i
		}
	}
	return -1
}

// Nav returns the navigation bar element.
func (t *Tabs) Nav() *html.Node {
	return t.nav
}

// Sections returns the tab sections in document order.
func (t *Tabs) Sections() []Section {
	return t.sections
}

// Visible returns the sections currently shown.
func (t *Tabs) Visible() []Section {
	var out []Section
	for _, s := range t.sections {
		if s.Visible() {
			out = append(out, s)
		}
	}
	return out
}

// ActiveLink returns the link carrying the active marker, or nil.
func (t *Tabs) ActiveLink() *html.Node {
	for _, a := range t.links {
		if page.HasClass(a, activeClass) {
			return a
		}
	}
	return nil
}

// ActiveID returns the fragment of the active link without its '#'.
func (t *Tabs) ActiveID() string {
	a := t.ActiveLink()
	if a == nil {
		return ""
	}
	return strings.TrimPrefix(page.Attr(a, "href"), "#")
}

// IDs returns the tab identifiers in order.
func (t *Tabs) IDs() []string {
	ids := make([]string, len(t.sections))
	for i, s := range t.sections {
		ids[i] = s.ID
	}
	return ids
}

// Close stops following route changes.
func (t *Tabs) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

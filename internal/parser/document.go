package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skeleton builds an empty page with header, main and footer regions.
func skeleton(title string) (*page.Page, *html.Node) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	p := page.New(doc)
	p.SetTitle(title)

	body := p.Body()
	main := page.Element("main")
	body.AppendChild(page.Element("header"))
	body.AppendChild(main)
	body.AppendChild(page.Element("footer"))
	return p, main
}

// sections accumulates top-level section divs under main. A new section is
// opened lazily so that leading or trailing breaks do not produce empty ones.
type sections struct {
	main    *html.Node
	current *html.Node
}

func (s *sections) add(n *html.Node) {
	if s.current == nil {
		s.current = page.Element("div")
		s.main.AppendChild(s.current)
	}
	page.AppendChild(s.current, n)
}

func (s *sections) split() {
	s.current = nil
}

// wrapPictures puts every bare <img> under root inside a <picture>, which is
// the shape published pages use for authored images.
func wrapPictures(root *html.Node) {
	for _, img := range page.FindAll(root, page.Tag("img")) {
		if img.Parent != nil && img.Parent.DataAtom == atom.Picture {
			continue
		}
		pic := page.Element("picture")
		img.Parent.InsertBefore(pic, img)
		page.AppendChild(pic, img)
	}
}

var nonIDChars = regexp.MustCompile(`[^0-9a-z]+`)

// headingID derives the anchor id authoring pipelines assign to headings.
func headingID(text string) string {
	id := nonIDChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
	return strings.Trim(id, "-")
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

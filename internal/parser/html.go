package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files. Full documents keep their structure; a body
// without <main> has its content (other than header and footer) moved into
// one, and missing header or footer regions are added empty.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*page.Page, error) {
	pg, err := page.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if pg.Title() == "" {
		pg.SetTitle(titleFromFilename(filename))
	}

	body := pg.Body()
	if pg.Main() == nil {
		main := page.Element("main")
		var footer *html.Node
		for _, c := range collectChildren(body) {
			switch c.DataAtom {
			case atom.Header:
				continue
			case atom.Footer:
				footer = c
				continue
			case atom.Script, atom.Style:
				continue
			}
			page.AppendChild(main, c)
		}
		if footer != nil {
			body.InsertBefore(main, footer)
		} else {
			body.AppendChild(main)
		}
	}

	if pg.Header() == nil {
		page.Prepend(body, page.Element("header"))
	}
	if pg.Footer() == nil {
		body.AppendChild(page.Element("footer"))
	}

	// Headings need ids so fragments can address them.
	for _, h := range page.FindAll(pg.Main(), func(n *html.Node) bool { return headingLevel(n.Data) > 0 }) {
		if page.Attr(h, "id") == "" {
			if id := headingID(page.TextContent(h)); id != "" {
				page.SetAttr(h, "id", id)
			}
		}
	}

	return pg, nil
}

func collectChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

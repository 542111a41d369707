package decor

import (
	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DecorateButtons turns links that stand alone in a paragraph into buttons.
// A link wrapped in <strong> becomes a primary button, one wrapped in <em> a
// secondary button. Links without a title get their text as title.
func DecorateButtons(root *html.Node) {
	for _, a := range page.FindAll(root, page.Tag("a")) {
		text := page.TextContent(a)
		if page.Attr(a, "title") == "" && text != "" {
			page.SetAttr(a, "title", text)
		}
		if page.Attr(a, "href") == text {
			continue
		}
		if page.Find(a, page.Tag("img")) != nil {
			continue
		}

		up := a.Parent
		if up == nil || childCount(up) != 1 {
			continue
		}
		switch up.DataAtom {
		case atom.P, atom.Div:
			page.SetAttr(a, "class", "button primary")
			page.AddClass(up, "button-container")
		case atom.Strong, atom.Em:
			twoup := up.Parent
			if twoup == nil || twoup.DataAtom != atom.P || childCount(twoup) != 1 {
				continue
			}
			if up.DataAtom == atom.Strong {
				page.SetAttr(a, "class", "button primary")
			} else {
				page.SetAttr(a, "class", "button secondary")
			}
			page.AddClass(twoup, "button-container")
		}
	}
}

func childCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

package autoblock

import (
	"github.com/dgallion1/pagedeco/internal/decor"
	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
)

// BuildHeroBlock moves the first picture and the first h1 of main into a hero
// block, in a new section placed first. It only does so when the picture
// comes before the heading, and reports whether a hero was built.
func BuildHeroBlock(main *html.Node) bool {
	h1 := page.Find(main, page.Tag("h1"))
	picture := page.Find(main, page.Tag("picture"))
	if h1 == nil || picture == nil || !page.Precedes(picture, h1) {
		return false
	}

	section := page.Element("div")
	section.AppendChild(decor.BuildBlock("hero", decor.Row{decor.Cell{picture, h1}}))
	page.Prepend(main, section)
	return true
}

package decor

import (
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
)

// DecorateIcons adds the image for every span.icon.icon-<name> under root.
func (l *Library) DecorateIcons(root *html.Node) {
	spans := page.FindAll(root, page.All(page.Tag("span"), page.Class("icon")))
	for _, span := range spans {
		classes := page.Classes(span)
		if len(classes) < 2 || !strings.HasPrefix(classes[1], "icon-") {
			continue
		}
		if page.Find(span, page.Tag("img")) != nil {
			continue
		}
		name := strings.TrimPrefix(classes[1], "icon-")
		span.AppendChild(page.Element("img",
			"src", l.codeBasePath+"/icons/"+name+".svg",
			"alt", name,
			"loading", "lazy",
		))
	}
}

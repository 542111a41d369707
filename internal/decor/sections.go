package decor

import (
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// hiddenStyle keeps a section out of view until its blocks are loaded.
const hiddenStyle = "display: none;"

// DecorateSections turns every div child of main into a section. Runs of
// default content share a default-content-wrapper; every block gets its own
// wrapper. A section-metadata block is applied to its section and removed.
func DecorateSections(main *html.Node) {
	for _, section := range page.ChildElements(main) {
		if section.DataAtom != atom.Div || page.HasClass(section, "section") {
			continue
		}

		var wrappers []*html.Node
		defaultContent := false
		for _, e := range page.ChildElements(section) {
			isBlock := e.DataAtom == atom.Div
			if isBlock || !defaultContent {
				wrapper := page.Element("div")
				defaultContent = !isBlock
				if defaultContent {
					page.AddClass(wrapper, "default-content-wrapper")
				}
				wrappers = append(wrappers, wrapper)
			}
			page.AppendChild(wrappers[len(wrappers)-1], e)
		}
		for _, w := range wrappers {
			section.AppendChild(w)
		}

		page.AddClass(section, "section")
		page.SetAttr(section, "data-section-status", StatusInitialized)
		page.SetAttr(section, "style", hiddenStyle)

		meta := page.Find(section, page.All(page.Tag("div"), page.Class("section-metadata")))
		if meta == nil {
			continue
		}
		for key, val := range ReadBlockConfig(meta) {
			if key == "style" {
				for _, style := range strings.Split(val, ",") {
					page.AddClass(section, ToClassName(strings.TrimSpace(style)))
				}
				continue
			}
			page.SetAttr(section, "data-"+key, val)
		}
		if meta.Parent != nil && meta.Parent != section {
			page.Detach(meta.Parent)
		} else {
			page.Detach(meta)
		}
	}
}

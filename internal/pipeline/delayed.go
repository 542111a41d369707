package pipeline

import (
	"github.com/dgallion1/pagedeco/internal/page"
)

// ScriptModule returns the default delayed module: it appends a module
// script for src to the body, once.
func ScriptModule(src string) DelayedModule {
	return func(p *page.Page) error {
		body := p.Body()
		if page.Find(body, page.All(page.Tag("script"), page.AttrEquals("src", src))) != nil {
			return nil
		}
		body.AppendChild(page.Element("script", "type", "module", "src", src))
		return nil
	}
}

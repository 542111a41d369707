package decor

import (
	"regexp"
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
)

var (
	nonClassChars = regexp.MustCompile(`[^0-9a-z]`)
	dashRuns      = regexp.MustCompile(`-+`)
)

// ToClassName normalizes a name for use as a CSS class.
func ToClassName(name string) string {
	s := nonClassChars.ReplaceAllString(strings.ToLower(name), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DecorateTemplateAndTheme adds the template and theme metadata of the page
// as body classes.
func DecorateTemplateAndTheme(p *page.Page) {
	body := p.Body()
	for _, key := range []string{"template", "theme"} {
		val := p.Meta(key)
		if val == "" {
			continue
		}
		for _, c := range strings.Split(val, ",") {
			page.AddClass(body, ToClassName(strings.TrimSpace(c)))
		}
	}
}

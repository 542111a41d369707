package autoblock

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/pagedeco/internal/metrics"
	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mainOf(t *testing.T, body string) *html.Node {
	t.Helper()
	p, err := page.Parse(strings.NewReader("<html><body><main>" + body + "</main></body></html>"))
	require.NoError(t, err)
	return p.Main()
}

const threeSections = `<div><h3>Our Story</h3><p>a</p></div>` +
	`<div><h3>Menu</h3><p>b</p></div>` +
	`<div><h3>Contact Us</h3><p>c</p></div>`

func TestBuildHeroBlock_PictureBeforeHeading(t *testing.T) {
	main := mainOf(t, `<div><p><picture><img src="h.jpg"></picture></p><h1>Welcome</h1><p>rest</p></div>`)

	require.True(t, BuildHeroBlock(main))

	first := page.ChildElements(main)[0]
	hero := page.Find(first, page.Class("hero"))
	require.NotNil(t, hero, "hero block in the first section")
	assert.NotNil(t, page.Find(hero, page.Tag("picture")))
	assert.NotNil(t, page.Find(hero, page.Tag("h1")))
	assert.Len(t, page.FindAll(main, page.Tag("h1")), 1, "heading moved, not copied")
	assert.Len(t, page.ChildElements(main), 2)
}

func TestBuildHeroBlock_NoHero(t *testing.T) {
	cases := map[string]string{
		"heading first": `<div><h1>Welcome</h1><picture><img src="h.jpg"></picture></div>`,
		"no picture":    `<div><h1>Welcome</h1></div>`,
		"no heading":    `<div><picture><img src="h.jpg"></picture></div>`,
		"empty":         ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			main := mainOf(t, body)
			var before strings.Builder
			require.NoError(t, html.Render(&before, main))

			assert.False(t, BuildHeroBlock(main))

			var after strings.Builder
			require.NoError(t, html.Render(&after, main))
			assert.Equal(t, before.String(), after.String(), "document unchanged")
		})
	}
}

func TestTabID(t *testing.T) {
	assert.Equal(t, "our-story", TabID("Our Story"))
	assert.Equal(t, "menu", TabID("Menu"))
	assert.Equal(t, "contact-us", TabID("Contact Us"))
	assert.Equal(t, "our-great story", TabID("Our Great Story"))
}

func TestBuildTabNavigation(t *testing.T) {
	main := mainOf(t, threeSections)

	tabs, err := BuildTabNavigation(main, router.New(""), quietLog())
	require.NoError(t, err)

	nav := page.ChildElements(main)[0]
	assert.Same(t, tabs.Nav(), nav, "nav is first in main")
	assert.Equal(t, "tablist", page.Attr(nav, "role"))
	assert.True(t, page.HasClass(nav, "tab-nav"))

	links := page.ChildElements(nav)
	require.Len(t, links, 3)
	wantHrefs := []string{"#our-story", "#menu", "#contact-us"}
	wantText := []string{"Our Story", "Menu", "Contact Us"}
	for i, a := range links {
		assert.Equal(t, wantHrefs[i], page.Attr(a, "href"))
		assert.Equal(t, wantText[i], page.TextContent(a))
	}
	assert.Equal(t, []string{"our-story", "menu", "contact-us"}, tabs.IDs())

	visible := tabs.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Our Story", visible[0].Title)
	assert.Same(t, links[0], tabs.ActiveLink())
	assert.Equal(t, "our-story", tabs.ActiveID())
}

func TestBuildTabNavigation_InlineMarkupInHeading(t *testing.T) {
	main := mainOf(t, `<div><h3>Caf<em>é</em> Menu</h3></div><div><h3><strong>Contact</strong> Us</h3></div>`)
	r := router.New("")
	tabs, err := BuildTabNavigation(main, r, quietLog())
	require.NoError(t, err)

	assert.Equal(t, []string{"café-menu", "contact-us"}, tabs.IDs())
	assert.Equal(t, "Café Menu", tabs.Sections()[0].Title)
	assert.Equal(t, "#café-menu", page.Attr(page.ChildElements(tabs.Nav())[0], "href"))

	r.Navigate("#contact-us")
	assert.Equal(t, "contact-us", tabs.ActiveID())
}

func TestBuildTabNavigation_MissingHeadingLeavesMainUntouched(t *testing.T) {
	main := mainOf(t, `<div><h3>One</h3></div><div><p>no heading</p></div>`)
	var before strings.Builder
	require.NoError(t, html.Render(&before, main))

	tabs, err := BuildTabNavigation(main, router.New(""), quietLog())
	require.ErrorIs(t, err, ErrMissingHeading)
	assert.Nil(t, tabs)

	var after strings.Builder
	require.NoError(t, html.Render(&after, main))
	assert.Equal(t, before.String(), after.String())
}

func TestTabs_ActivateIsIdempotent(t *testing.T) {
	main := mainOf(t, threeSections)
	tabs, err := BuildTabNavigation(main, router.New(""), quietLog())
	require.NoError(t, err)

	require.NoError(t, tabs.Activate("#menu"))
	var once strings.Builder
	require.NoError(t, html.Render(&once, main))

	require.NoError(t, tabs.Activate("#menu"))
	var twice strings.Builder
	require.NoError(t, html.Render(&twice, main))

	assert.Equal(t, once.String(), twice.String())
	visible := tabs.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Menu", visible[0].Title)
	assert.Equal(t, "menu", tabs.ActiveID())
}

func TestTabs_ActivateUnknownChangesNothing(t *testing.T) {
	main := mainOf(t, threeSections)
	tabs, err := BuildTabNavigation(main, router.New(""), quietLog())
	require.NoError(t, err)

	err = tabs.Activate("#nope")
	require.ErrorIs(t, err, ErrUnknownSection)
	require.Len(t, tabs.Visible(), 1)
	assert.Equal(t, "our-story", tabs.ActiveID())

	err = tabs.Activate("menu")
	require.ErrorIs(t, err, ErrUnknownSection, "identifier must carry its '#'")
}

func TestTabs_FragmentRoundTrip(t *testing.T) {
	for k, id := range []string{"our-story", "menu", "contact-us"} {
		main := mainOf(t, threeSections)
		tabs, err := BuildTabNavigation(main, router.New("#"+id), quietLog())
		require.NoError(t, err)

		visible := tabs.Visible()
		require.Len(t, visible, 1)
		assert.Same(t, tabs.Sections()[k].Node, visible[0].Node)
		assert.Equal(t, id, tabs.ActiveID())
	}
}

func TestTabs_MultiWordTitleRoundTrip(t *testing.T) {
	main := mainOf(t, `<div><h3>Home</h3></div><div><h3>Our Great Story</h3></div>`)
	r := router.New("")
	tabs, err := BuildTabNavigation(main, r, quietLog())
	require.NoError(t, err)

	assert.Equal(t, "#our-great story", page.Attr(page.ChildElements(tabs.Nav())[1], "href"))
	r.Navigate("#our-great story")
	require.Len(t, tabs.Visible(), 1)
	assert.Equal(t, "Our Great Story", tabs.Visible()[0].Title)
}

func TestTabs_FollowRouter(t *testing.T) {
	main := mainOf(t, threeSections)
	r := router.New("")
	tabs, err := BuildTabNavigation(main, r, quietLog())
	require.NoError(t, err)

	r.Navigate("#contact-us")
	assert.Equal(t, "contact-us", tabs.ActiveID())

	r.Navigate("#unknown")
	assert.Equal(t, "contact-us", tabs.ActiveID(), "unknown fragment ignored")

	r.Navigate("")
	assert.Equal(t, "contact-us", tabs.ActiveID(), "cleared fragment ignored")

	tabs.Close()
	r.Navigate("#menu")
	assert.Equal(t, "contact-us", tabs.ActiveID(), "closed tabs stop following")
}

func TestTabs_InitialUnknownRoute(t *testing.T) {
	main := mainOf(t, threeSections)
	tabs, err := BuildTabNavigation(main, router.New("#nope"), quietLog())
	require.ErrorIs(t, err, ErrUnknownSection)
	require.NotNil(t, tabs)
	assert.Equal(t, "our-story", tabs.ActiveID())
}

func TestBuildAutoBlocks_TabsFailureKeepsHero(t *testing.T) {
	// The hero section has no h3, so tab synthesis must fail after the hero
	// was built.
	main := mainOf(t, `<div><picture><img src="h.jpg"></picture><h1>Hi</h1></div>`+threeSections)
	rec := metrics.NewRecorder(nil)
	b := NewBuilder(router.New(""), rec, quietLog())

	res := b.BuildAutoBlocks(main)

	assert.True(t, res.Hero)
	assert.Nil(t, res.Tabs)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, ErrMissingHeading))
	assert.NotNil(t, page.Find(page.ChildElements(main)[0], page.Class("hero")))
	assert.Nil(t, page.Find(main, page.Class("tab-nav")))

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `pagedeco_autoblock_failures_total{synthesizer="tabs"} 1`)
}

func TestBuildAutoBlocks_Success(t *testing.T) {
	main := mainOf(t, threeSections)
	res := NewBuilder(nil, nil, quietLog()).BuildAutoBlocks(main)

	require.NoError(t, res.Err)
	assert.False(t, res.Hero)
	require.NotNil(t, res.Tabs)
	assert.Len(t, res.Tabs.Visible(), 1)
}

func TestBuildAutoBlocks_RecoversPanic(t *testing.T) {
	res := NewBuilder(panicRouter{}, nil, quietLog()).BuildAutoBlocks(mainOf(t, threeSections))
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "tabs panicked")
}

type panicRouter struct{}

func (panicRouter) OnRouteChange(router.Handler) func() { panic("no history") }
func (panicRouter) CurrentRoute() string                 { return "" }

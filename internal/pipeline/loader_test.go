package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/pagedeco/internal/autoblock"
	"github.com/dgallion1/pagedeco/internal/decor"
	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parsePage(t *testing.T, doc string) *page.Page {
	t.Helper()
	p, err := page.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return p
}

func fullPage(t *testing.T, main string) *page.Page {
	return parsePage(t, "<html><head><title>t</title></head><body><header></header><main>"+main+"</main><footer></footer></body></html>")
}

const tabbedMain = `<div><h3>Our Story</h3><p>a</p></div>` +
	`<div><h3 id="menu">Menu</h3><div class="cards"><div><div>x</div></div></div></div>` +
	`<div><h3>Contact Us</h3><p>c</p></div>`

const heroMain = `<div><picture><img src="h.jpg"></picture><h1>Welcome</h1></div>` + tabbedMain

// events records calls from the stand-ins of each phase.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, s)
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

func (e *events) block(name string) decor.Option {
	return decor.WithBlock(name, func(context.Context, *page.Page, *html.Node) error {
		e.add(name)
		return nil
	})
}

func (e *events) module() DelayedModule {
	return func(*page.Page) error {
		e.add("delayed")
		return nil
	}
}

func waitDone(t *testing.T, d *Deferred) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.Wait(ctx)
}

func TestLoadPage_FullPage(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := NewStats(time.Hour, clock)
	l := NewLoader(Settings{CodeBasePath: "/code/", RUMWeight: 1}, nil, quietLog(),
		WithClock(clock), WithStats(stats))
	p := fullPage(t, tabbedMain)
	pl := l.NewPageLoad(p, "#menu")

	require.NoError(t, l.LoadPage(context.Background(), pl))

	body := p.Body()
	assert.True(t, page.HasClass(body, "js-enabled"))
	assert.True(t, page.HasClass(body, "appear"))
	assert.Equal(t, "en", page.Attr(p.Root(), "lang"))

	tabs := pl.Tabs()
	require.NotNil(t, tabs)
	assert.Equal(t, "menu", tabs.ActiveID())
	require.Len(t, tabs.Visible(), 1)
	assert.Equal(t, "Menu", tabs.Visible()[0].Title)

	for _, s := range page.FindAll(p.Main(), page.Class("section")) {
		assert.Equal(t, decor.StatusLoaded, page.Attr(s, "data-section-status"))
	}
	assert.Equal(t, decor.StatusLoaded, page.Attr(page.Find(p.Main(), page.Class("cards")), "data-block-status"))
	assert.NotNil(t, page.Find(p.Header(), page.Class("header")))
	assert.NotNil(t, page.Find(p.Head(), page.AttrEquals("href", "/code/styles/lazy-styles.css")))
	assert.NotNil(t, page.Find(p.Head(), page.AttrEquals("href", "/code/styles/favicon.svg")))

	target := p.ScrollTarget()
	require.NotNil(t, target)
	assert.Equal(t, "menu", page.Attr(target, "id"))

	require.Len(t, pl.Sampler.Checkpoints(), 1)
	assert.Equal(t, "lazy", pl.Sampler.Checkpoints()[0].Name)
	assert.Equal(t, 1, pl.Sampler.ObservedCount(), "one block, no pictures")

	phase, running := pl.Phase()
	assert.Equal(t, PhaseDelayed, phase)
	assert.False(t, running)
	assert.Equal(t, DeferredPending, pl.Delayed().State())
	assert.Equal(t, 1, stats.Snapshot("eager").Count)
	assert.Equal(t, 1, stats.Snapshot("lazy").Count)
}

func TestLoadPage_PhaseOrder(t *testing.T) {
	ev := &events{}
	clock := clockwork.NewFakeClock()
	lib := decor.New("", quietLog(), ev.block("hero"), ev.block("cards"), ev.block("header"))
	l := NewLoader(Settings{LCPBlocks: []string{"hero"}}, lib, quietLog(),
		WithClock(clock), WithDelayedModule(ev.module()))
	pl := l.NewPageLoad(fullPage(t, heroMain), "")

	require.NoError(t, l.LoadPage(context.Background(), pl))
	assert.Equal(t, []string{"hero", "cards", "header"}, ev.list(), "eager block, then lazy blocks and header")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(2999 * time.Millisecond)
	assert.Equal(t, DeferredPending, pl.Delayed().State())
	assert.NotContains(t, ev.list(), "delayed")

	clock.Advance(time.Millisecond)
	require.NoError(t, waitDone(t, pl.Delayed()))
	assert.Equal(t, []string{"hero", "cards", "header", "delayed"}, ev.list())

	phase, _ := pl.Phase()
	assert.Equal(t, PhaseDone, phase)
}

func TestLoadLazy_BeforeEager(t *testing.T) {
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clockwork.NewFakeClock()))
	pl := l.NewPageLoad(fullPage(t, tabbedMain), "")

	err := l.LoadLazy(context.Background(), pl)
	require.ErrorIs(t, err, ErrPhaseOrder)
	assert.Nil(t, page.Find(pl.Page.Head(), page.Tag("link")), "lazy work did not run")

	require.ErrorIs(t, l.LoadDelayed(pl), ErrPhaseOrder)
	assert.Nil(t, pl.Delayed())
}

func TestLoadEager_Twice(t *testing.T) {
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clockwork.NewFakeClock()))
	pl := l.NewPageLoad(fullPage(t, tabbedMain), "")

	require.NoError(t, l.LoadEager(context.Background(), pl))
	require.ErrorIs(t, l.LoadEager(context.Background(), pl), ErrPhaseOrder)
	assert.Len(t, page.FindAll(pl.Page.Main(), page.Class("tab-nav")), 1)
}

func TestLoadPage_EagerFailureStopsLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clockwork.NewFakeClock()))
	pl := l.NewPageLoad(fullPage(t, tabbedMain), "")

	err := l.LoadPage(ctx, pl)
	require.ErrorIs(t, err, context.Canceled)
	phase, running := pl.Phase()
	assert.Equal(t, PhaseEager, phase)
	assert.False(t, running)
	assert.Nil(t, pl.Delayed(), "delayed phase never scheduled")
	require.ErrorIs(t, l.LoadLazy(context.Background(), pl), ErrPhaseOrder)
}

func TestLoadPage_LazyFailureStopsLoad(t *testing.T) {
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clockwork.NewFakeClock()))
	p := parsePage(t, "<html><body><main>"+tabbedMain+"</main></body></html>")
	pl := l.NewPageLoad(p, "")

	err := l.LoadPage(context.Background(), pl)
	require.ErrorIs(t, err, decor.ErrMissingRegion)
	assert.Nil(t, page.Find(p.Head(), page.AttrEquals("rel", "icon")), "steps after the header were skipped")
	assert.Nil(t, pl.Delayed())
	assert.Error(t, pl.Err())
}

func TestLoadPage_NoMain(t *testing.T) {
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clockwork.NewFakeClock()))
	p := parsePage(t, "<html><body><header></header><p>loose</p></body></html>")
	pl := l.NewPageLoad(p, "")

	require.NoError(t, l.LoadEager(context.Background(), pl))
	assert.False(t, page.HasClass(p.Body(), "appear"))
	require.ErrorIs(t, l.LoadLazy(context.Background(), pl), ErrNoMain)
}

func TestLoadEager_TabFailureKeepsHeroAndDecorates(t *testing.T) {
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clockwork.NewFakeClock()))
	pl := l.NewPageLoad(fullPage(t, heroMain), "")

	require.NoError(t, l.LoadEager(context.Background(), pl))

	res := pl.AutoBlocks()
	assert.True(t, res.Hero)
	assert.True(t, errors.Is(res.Err, autoblock.ErrMissingHeading))
	assert.Nil(t, pl.Tabs())

	main := pl.Page.Main()
	sections := page.ChildElements(main)
	require.Len(t, sections, 5, "hero section plus the four authored ones")
	for _, s := range sections {
		assert.True(t, page.HasClass(s, "section"))
	}
	hero := page.Find(sections[0], page.Class("hero"))
	require.NotNil(t, hero)
	assert.Equal(t, "hero", page.Attr(hero, "data-block-name"))
	assert.Nil(t, page.Find(main, page.Class("tab-nav")))
}

func TestDecorateMain_TabsBeforeSections(t *testing.T) {
	l := NewLoader(Settings{}, nil, quietLog())
	p := fullPage(t, `<div><h3>One</h3><p><a href="/x">Go</a></p></div><div><h3>Two</h3></div>`)

	res := l.DecorateMain(p.Main(), nil)
	require.NoError(t, res.Err)

	children := page.ChildElements(p.Main())
	require.Len(t, children, 3)
	assert.Equal(t, "nav", children[0].Data)
	assert.False(t, page.HasClass(children[0], "section"), "nav is not a section")
	assert.True(t, page.HasClass(children[1], "section"))
	assert.True(t, page.HasClass(children[2], "visuallyhidden"))
	assert.Equal(t, "button primary", page.Attr(page.Find(children[1], page.AttrEquals("href", "/x")), "class"))
}

func TestPageLoad_CloseCancelsDelayed(t *testing.T) {
	ev := &events{}
	clock := clockwork.NewFakeClock()
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clock), WithDelayedModule(ev.module()))
	pl := l.NewPageLoad(fullPage(t, tabbedMain), "")
	require.NoError(t, l.LoadPage(context.Background(), pl))

	pl.Close()
	clock.Advance(10 * time.Second)

	require.NoError(t, waitDone(t, pl.Delayed()))
	assert.Equal(t, DeferredCanceled, pl.Delayed().State())
	assert.Empty(t, ev.list())
	phase, _ := pl.Phase()
	assert.Equal(t, PhaseDone, phase)
}

func TestPageLoad_NavigateSwitchesTabs(t *testing.T) {
	l := NewLoader(Settings{}, nil, quietLog(), WithClock(clockwork.NewFakeClock()))
	pl := l.NewPageLoad(fullPage(t, tabbedMain), "")
	require.NoError(t, l.LoadPage(context.Background(), pl))

	assert.True(t, pl.Navigate("#contact-us"))
	assert.Equal(t, "contact-us", pl.Tabs().ActiveID())
	assert.False(t, pl.Navigate("contact-us"), "same route")
}

func TestScriptModule(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoader(Settings{CodeBasePath: "/code"}, nil, quietLog(), WithClock(clock))
	pl := l.NewPageLoad(fullPage(t, tabbedMain), "")
	require.NoError(t, l.LoadPage(context.Background(), pl))

	clock.Advance(DefaultDelayedAfter)
	require.NoError(t, waitDone(t, pl.Delayed()))

	var buf strings.Builder
	require.NoError(t, pl.Page.Render(&buf))
	assert.Contains(t, buf.String(), `<script type="module" src="/code/scripts/delayed.js"></script>`)

	require.NoError(t, ScriptModule("/code/scripts/delayed.js")(pl.Page))
	assert.Len(t, page.FindAll(pl.Page.Body(), page.Tag("script")), 1)
}

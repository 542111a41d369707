package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/yuin/goldmark"
	gmparser "github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkdownParser handles Markdown files using goldmark. Thematic breaks
// (---) separate top-level sections.
type MarkdownParser struct{}

var markdown = goldmark.New(
	goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*page.Page, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var rendered bytes.Buffer
	if err := markdown.Convert(src, &rendered); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	context := &html.Node{Type: html.ElementNode, Data: "main", DataAtom: atom.Main}
	nodes, err := html.ParseFragment(&rendered, context)
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}

	title := titleFromFilename(filename)
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.H1 {
			title = page.TextContent(n)
			break
		}
	}

	pg, main := skeleton(title)
	secs := &sections{main: main}
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Hr {
			secs.split()
			continue
		}
		if n.Type == html.TextNode && isBlank(n.Data) {
			continue
		}
		secs.add(n)
	}
	wrapPictures(main)

	return pg, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading styles become h1..h6 and a
// paragraph consisting only of "---" starts a new section.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*page.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	title := titleFromFilename(filename)
	pg, main := skeleton(title)
	secs := &sections{main: main}
	titled := false

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}

		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if text == "---" {
			secs.split()
			continue
		}

		level := docxHeadingLevel(para)
		if level > 0 {
			h := page.Element("h"+strconv.Itoa(level), "id", headingID(text))
			h.AppendChild(page.Text(text))
			secs.add(h)
			if level == 1 && !titled {
				pg.SetTitle(text)
				titled = true
			}
			continue
		}

		el := page.Element("p")
		el.AppendChild(page.Text(text))
		secs.add(el)
	}

	return pg, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	switch {
	case strings.EqualFold(style, "Heading1") || strings.EqualFold(style, "heading 1") || strings.EqualFold(style, "Title"):
		return 1
	case strings.EqualFold(style, "Heading2") || strings.EqualFold(style, "heading 2"):
		return 2
	case strings.EqualFold(style, "Heading3") || strings.EqualFold(style, "heading 3"):
		return 3
	case strings.EqualFold(style, "Heading4") || strings.EqualFold(style, "heading 4"):
		return 4
	case strings.EqualFold(style, "Heading5") || strings.EqualFold(style, "heading 5"):
		return 5
	case strings.EqualFold(style, "Heading6") || strings.EqualFold(style, "heading 6"):
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

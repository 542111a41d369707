package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
)

// TextParser handles plain text files. Every paragraph becomes a <p> in a
// single section.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*page.Page, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	pg, main := skeleton(titleFromFilename(filename))
	secs := &sections{main: main}
	for _, para := range paragraphs {
		el := page.Element("p")
		el.AppendChild(page.Text(para))
		secs.add(el)
	}

	return pg, nil
}

package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/a3tai/html-fillable-pdf/internal/form"
	pdferrors "github.com/a3tai/html-fillable-pdf/internal/pdf/errors"
)

// Source is the static view of an HTML document: what the markup declares
// before any script or layout runs
type Source struct {
	Path     string
	Title    string
	Controls []form.RawControl
}

// ControlCount returns the number of controls declared in the markup
func (s *Source) ControlCount() int {
	return len(s.Controls)
}

// Preflight checks that path is a readable HTML document and lists its
// controls in document order. Geometry is left zero.
func Preflight(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, pdferrors.NewSourceUnavailable(path, err).WithStage("preflight")
	}
	if info.IsDir() {
		return nil, pdferrors.NewSourceUnavailable(path, fmt.Errorf("path is a directory")).WithStage("preflight")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, pdferrors.NewSourceUnavailable(path, err).WithStage("preflight")
	}
	defer f.Close()

	src, err := ParseSource(f)
	if err != nil {
		return nil, pdferrors.NewSourceUnavailable(path, err).WithStage("preflight")
	}
	src.Path = path
	return src, nil
}

// ParseSource parses HTML markup from r
func ParseSource(r io.Reader) (*Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	src := &Source{Controls: []form.RawControl{}}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Template:
				// Template content is inert and not part of the live document
				return
			case atom.Title:
				if src.Title == "" {
					src.Title = strings.TrimSpace(textContent(n))
				}
			case atom.Input, atom.Select, atom.Textarea:
				src.Controls = append(src.Controls, staticControl(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return src, nil
}

func staticControl(n *html.Node) form.RawControl {
	c := form.RawControl{
		Tag:         n.Data,
		Name:        attr(n, "name"),
		ID:          attr(n, "id"),
		Placeholder: attr(n, "placeholder"),
	}

	switch n.DataAtom {
	case atom.Input:
		c.Type = strings.ToLower(attr(n, "type"))
		if c.Type == "" {
			c.Type = "text"
		}
	case atom.Select:
		c.Options = []form.Option{}
		collectOptions(n, &c.Options)
	}
	return c
}

func collectOptions(n *html.Node, out *[]form.Option) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Option:
			text := strings.Join(strings.Fields(textContent(c)), " ")
			value, ok := attrOK(c, "value")
			if !ok {
				value = text
			}
			*out = append(*out, form.Option{Value: value, Text: text})
		case atom.Optgroup:
			collectOptions(c, out)
		}
	}
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

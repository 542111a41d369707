package page

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Matcher reports whether an element node matches a query.
type Matcher func(n *html.Node) bool

// Tag matches elements by tag name.
func Tag(name string) Matcher {
	a := atom.Lookup([]byte(name))
	return func(n *html.Node) bool {
		if a != 0 {
			return n.DataAtom == a
		}
		return n.Data == name
	}
}

// Class matches elements carrying the class.
func Class(name string) Matcher {
	return func(n *html.Node) bool { return HasClass(n, name) }
}

// AttrEquals matches elements whose attribute equals val.
func AttrEquals(key, val string) Matcher {
	return func(n *html.Node) bool {
		v, ok := lookupAttr(n, key)
		return ok && v == val
	}
}

// HasAttr matches elements carrying the attribute.
func HasAttr(key string) Matcher {
	return func(n *html.Node) bool {
		_, ok := lookupAttr(n, key)
		return ok
	}
}

// All matches when every matcher matches.
func All(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// ChildOf matches elements whose parent matches parent.
func ChildOf(parent Matcher, m Matcher) Matcher {
	return func(n *html.Node) bool {
		return m(n) && n.Parent != nil && n.Parent.Type == html.ElementNode && parent(n.Parent)
	}
}

// Element creates a detached element.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// Text creates a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Find returns the first descendant of n (in document order) matching m.
func Find(n *html.Node, m Matcher) *html.Node {
	if n == nil {
		return nil
	}
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && m(d) {
			return d
		}
	}
	return nil
}

// FindAll returns every descendant of n matching m, in document order.
func FindAll(n *html.Node, m Matcher) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && m(d) {
			out = append(out, d)
		}
	}
	return out
}

// ChildElements returns the element children of n.
func ChildElements(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// blockAtoms break text flow; inline elements do not.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// TextContent returns the visible text of n with whitespace collapsed.
// Adjacent text joins without a separator, so inline markup never splits a
// word; block elements and <br> separate words.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			return
		}
		block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
		if block {
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
		if block {
			buf.WriteByte(' ')
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Attr returns the attribute value or "".
func Attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	return slices.Contains(Classes(n), c)
}

// AddClass appends classes not already present.
func AddClass(n *html.Node, cs ...string) {
	list := Classes(n)
	changed := false
	for _, c := range cs {
		if c == "" || slices.Contains(list, c) {
			continue
		}
		list = append(list, c)
		changed = true
	}
	if changed {
		SetAttr(n, "class", strings.Join(list, " "))
	}
}

// RemoveClass removes a class. The attribute is dropped when the list empties.
func RemoveClass(n *html.Node, c string) {
	list := Classes(n)
	if !slices.Contains(list, c) {
		return
	}
	list = slices.DeleteFunc(list, func(s string) bool { return s == c })
	if len(list) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(list, " "))
}

// FirstClass returns the first class of n, which names a block.
func FirstClass(n *html.Node) string {
	if list := Classes(n); len(list) > 0 {
		return list[0]
	}
	return ""
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Prepend moves child to the front of parent.
func Prepend(parent, child *html.Node) {
	Detach(child)
	parent.InsertBefore(child, parent.FirstChild)
}

// AppendChild moves child to the end of parent.
func AppendChild(parent, child *html.Node) {
	Detach(child)
	parent.AppendChild(child)
}

// ReplaceWith puts repl where old is and detaches old.
func ReplaceWith(old, repl *html.Node) {
	Detach(repl)
	old.Parent.InsertBefore(repl, old)
	old.Parent.RemoveChild(old)
}

// Precedes reports whether a comes strictly before b in document order.
// An ancestor precedes its descendants. Nodes in different trees never
// precede each other.
func Precedes(a, b *html.Node) bool {
	if a == nil || b == nil || a == b {
		return false
	}
	root := treeRoot(a)
	if treeRoot(b) != root {
		return false
	}
	if root == a {
		return true
	}
	for d := range root.Descendants() {
		switch d {
		case a:
			return true
		case b:
			return false
		}
	}
	return false
}

func treeRoot(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

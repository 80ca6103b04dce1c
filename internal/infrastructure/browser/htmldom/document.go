// Package htmldom is a small in-memory DOM over golang.org/x/net/html. It
// supports enough of the browser surface to replay the four primitive actions:
// selector lookup, focus, form values, click activation, bubbling events and
// location/history updates.
package htmldom

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Loader fetches the markup for a full navigation. When it is nil a full
// navigation only changes the location.
type Loader func(url string) (io.ReadCloser, error)

type Document struct {
	root        *html.Node
	location    *url.URL
	focused     *html.Node
	history     []string
	navigations []string
	listeners   map[*html.Node]map[string][]Listener
	window      map[string][]Listener
	loader      Loader
}

func Parse(r io.Reader, location string) (*Document, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return &Document{
		root:      root,
		location:  loc,
		history:   []string{loc.String()},
		listeners: make(map[*html.Node]map[string][]Listener),
		window:    make(map[string][]Listener),
	}, nil
}

func ParseString(markup, location string) (*Document, error) {
	return Parse(strings.NewReader(markup), location)
}

func (d *Document) SetLoader(l Loader) {
	d.loader = l
}

func (d *Document) Root() *html.Node {
	return d.root
}

func (d *Document) Body() *html.Node {
	if n := findElement(d.root, atom.Body); n != nil {
		return n
	}
	return d.root
}

func (d *Document) Title() string {
	n := findElement(d.root, atom.Title)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(textContent(n))
}

// Text returns the visible body text, collapsed and truncated to limit bytes
// when limit > 0.
func (d *Document) Text(limit int) string {
	var sb strings.Builder
	collectText(d.Body(), &sb)
	text := strings.Join(strings.Fields(sb.String()), " ")
	if limit > 0 && len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// QuerySelector returns the first element matching sel, or nil.
func (d *Document) QuerySelector(sel string) (*html.Node, error) {
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("'%s' is not a valid selector: %w", sel, err)
	}
	return compiled.MatchFirst(d.root), nil
}

func (d *Document) Location() string {
	return d.location.String()
}

func (d *Document) History() []string {
	return append([]string(nil), d.history...)
}

// Navigations lists the full top-level navigations performed so far.
func (d *Document) Navigations() []string {
	return append([]string(nil), d.navigations...)
}

var ErrCrossOrigin = errors.New("SecurityError: state cannot be pushed to a different origin")

// PushState updates the location without a reload. ref is resolved against
// the current location and must stay on the same origin.
func (d *Document) PushState(ref string) error {
	u, err := d.location.Parse(ref)
	if err != nil {
		return err
	}
	if u.Scheme != d.location.Scheme || u.Host != d.location.Host {
		return ErrCrossOrigin
	}

	d.location = u
	d.history = append(d.history, u.String())
	return nil
}

// Assign performs a full navigation. With a loader the document is replaced,
// which drops focus and every node listener.
func (d *Document) Assign(ref string) error {
	u, err := d.location.Parse(ref)
	if err != nil {
		return err
	}

	d.location = u
	d.history = append(d.history, u.String())
	d.navigations = append(d.navigations, u.String())

	if d.loader == nil {
		return nil
	}

	body, err := d.loader(u.String())
	if err != nil {
		return fmt.Errorf("load %s: %w", u, err)
	}
	defer body.Close()

	root, err := html.Parse(body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", u, err)
	}
	d.root = root
	d.focused = nil
	d.listeners = make(map[*html.Node]map[string][]Listener)
	return nil
}

func (d *Document) ActiveElement() *html.Node {
	if d.focused != nil {
		return d.focused
	}
	return d.Body()
}

func (d *Document) Focus(n *html.Node) {
	if d.focused == n {
		return
	}
	if d.focused != nil {
		d.Dispatch(d.focused, Event{Type: "blur"})
	}
	d.focused = n
	d.Dispatch(n, Event{Type: "focus"})
}

// Value returns the form value of an input, textarea or select.
func (d *Document) Value(n *html.Node) string {
	if n.DataAtom == atom.Textarea {
		return textContent(n)
	}
	v, _ := Attr(n, "value")
	return v
}

func (d *Document) SetValue(n *html.Node, value string) {
	if n.DataAtom == atom.Textarea {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return
	}
	SetAttr(n, "value", value)
}

// Click runs the element's activation behaviour: a bubbling click event,
// then checkbox/radio toggling, link following or form submission.
func (d *Document) Click(n *html.Node) error {
	ev := d.Dispatch(n, Event{Type: "click", Bubbles: true})
	if ev.DefaultPrevented {
		return nil
	}

	switch {
	case n.DataAtom == atom.Input && isCheckable(n):
		if _, checked := Attr(n, "checked"); checked {
			RemoveAttr(n, "checked")
		} else {
			SetAttr(n, "checked", "")
		}
		d.Dispatch(n, Event{Type: "input", Bubbles: true})
		d.Dispatch(n, Event{Type: "change", Bubbles: true})
	case n.DataAtom == atom.A:
		if href, ok := Attr(n, "href"); ok && href != "" {
			return d.Assign(href)
		}
	case isSubmitter(n):
		if form := closest(n, atom.Form); form != nil {
			d.Dispatch(form, Event{Type: "submit", Bubbles: true})
		}
	}
	return nil
}

func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func isCheckable(n *html.Node) bool {
	t, _ := Attr(n, "type")
	t = strings.ToLower(t)
	return t == "checkbox" || t == "radio"
}

func isSubmitter(n *html.Node) bool {
	t, hasType := Attr(n, "type")
	t = strings.ToLower(t)
	switch n.DataAtom {
	case atom.Button:
		return !hasType || t == "submit"
	case atom.Input:
		return t == "submit"
	}
	return false
}

func closest(n *html.Node, a atom.Atom) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return p
		}
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

var hiddenText = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && hiddenText[n.DataAtom] {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

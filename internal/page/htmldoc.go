package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	cardClass       = "item-card"
	selectableClass = "selectable"
	indicatorClass  = "price-comparison-indicator"
	priceClass      = "price-per-coin"
)

// ErrClosed is returned by Insert after Close.
var ErrClosed = errors.New("page: document closed")

// Document is an HTML page that grows through Insert. All node access goes
// through the document lock.
type Document struct {
	mu sync.Mutex
	// sendMu keeps Close from closing changes under an in-flight Insert.
	sendMu  sync.RWMutex
	root    *html.Node
	body    *html.Node
	closed  bool
	changes chan Mutation
}

// Parse reads a full HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	body := find(root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if body == nil {
		return nil, fmt.Errorf("parse page: no body")
	}
	return &Document{root: root, body: body, changes: make(chan Mutation, 64)}, nil
}

// Insert parses an HTML fragment, appends it to the body and publishes the
// new top-level nodes as one Mutation. It returns the number of inserted
// element subtrees.
func (d *Document) Insert(ctx context.Context, fragment io.Reader) (int, error) {
	d.sendMu.RLock()
	defer d.sendMu.RUnlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, ErrClosed
	}
	nodes, err := html.ParseFragment(fragment, &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	if err != nil {
		d.mu.Unlock()
		return 0, fmt.Errorf("parse fragment: %w", err)
	}
	var added []Subtree
	for _, n := range nodes {
		d.body.AppendChild(n)
		if n.Type == html.ElementNode {
			added = append(added, subtree{doc: d, node: n})
		}
	}
	d.mu.Unlock()

	if len(added) == 0 {
		return 0, nil
	}
	select {
	case d.changes <- Mutation{Added: added}:
		return len(added), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (d *Document) Changes() <-chan Mutation {
	return d.changes
}

// Close ends the change stream.
func (d *Document) Close() {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.changes)
	}
}

// Cards returns every item card currently in the page.
func (d *Document) Cards() []Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cardsUnder(d.root, false)
}

// ClearAnnotations removes every badge from the page.
func (d *Document) ClearAnnotations() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var indicators []*html.Node
	walk(d.root, func(n *html.Node) {
		if hasClass(n, indicatorClass) {
			indicators = append(indicators, n)
		}
	})
	for _, n := range indicators {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(indicators)
}

// Render writes the page, badges included.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

func (d *Document) cardsUnder(n *html.Node, includeSelf bool) []Card {
	var out []Card
	walk(n, func(c *html.Node) {
		if c == n && !includeSelf {
			return
		}
		if hasClass(c, cardClass) && hasClass(c, selectableClass) {
			out = append(out, card{doc: d, node: c})
		}
	})
	return out
}

type subtree struct {
	doc  *Document
	node *html.Node
}

func (s subtree) Cards() []Card {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	return s.doc.cardsUnder(s.node, true)
}

// card is a value type so equal cards mean the same node.
type card struct {
	doc  *Document
	node *html.Node
}

func (c card) ItemName() (string, bool) {
	return c.text(func(n *html.Node) bool { return attrIs(n, "data-test", "item-name") })
}

func (c card) Subcategory() (string, bool) {
	return c.text(func(n *html.Node) bool { return attrIs(n, "data-test", "item-subcategory") })
}

func (c card) PriceText() (string, bool) {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()

	isBalance := func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "cw-pretty-balance" }
	if v := findWithin(c.node, isBalance, func(n *html.Node) bool { return attrIs(n, "data-test", "value") }); v != nil {
		return strings.TrimSpace(textContent(v)), true
	}
	if v := find(c.node, func(n *html.Node) bool { return hasClass(n, "currency-value") }); v != nil {
		return strings.TrimSpace(textContent(v)), true
	}
	if v := findWithin(c.node, isBalance, func(n *html.Node) bool { return n.DataAtom == atom.Span }); v != nil {
		return strings.TrimSpace(textContent(v)), true
	}
	return "", false
}

func (c card) WearClasses() string {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()

	bar := find(c.node, func(n *html.Node) bool { return hasClass(n, "wear-bar") })
	if bar == nil {
		return ""
	}
	return attr(bar, "class")
}

func (c card) HasAnnotation() bool {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()
	return c.indicator() != nil
}

func (c card) Annotate(a Annotation) {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()
	if c.indicator() != nil {
		return
	}

	label := &html.Node{
		Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		Attr: []html.Attribute{{Key: "class", Val: priceClass}},
	}
	label.AppendChild(&html.Node{Type: html.TextNode, Data: a.Label})

	badge := &html.Node{
		Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		Attr: []html.Attribute{{Key: "class", Val: indicatorClass + " " + string(a.Tier)}},
	}
	badge.AppendChild(label)

	setStyle(c.node, "position", "relative")
	c.node.AppendChild(badge)
}

func (c card) RemoveAnnotation() bool {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()
	n := c.indicator()
	if n == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

func (c card) indicator() *html.Node {
	return find(c.node, func(n *html.Node) bool { return hasClass(n, indicatorClass) })
}

func (c card) text(match func(*html.Node) bool) (string, bool) {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()
	n := find(c.node, match)
	if n == nil {
		return "", false
	}
	return strings.TrimSpace(textContent(n)), true
}

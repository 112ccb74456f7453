package page

import (
	"strings"

	"golang.org/x/net/html"
)

// walk visits n and its descendants in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// find returns the first descendant of n (n excluded) matching.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findWithin is the descendant combinator "outer inner".
func findWithin(n *html.Node, outer, inner func(*html.Node) bool) *html.Node {
	var found *html.Node
	var search func(*html.Node)
	search = func(p *html.Node) {
		for c := p.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if outer(c) {
				if m := find(c, inner); m != nil {
					found = m
					return
				}
			}
			search(c)
		}
	}
	search(n)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func attrIs(n *html.Node, key, val string) bool {
	return n.Type == html.ElementNode && attr(n, key) == val
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

// setStyle sets one declaration in the style attribute, keeping the rest.
func setStyle(n *html.Node, prop, val string) {
	decl := prop + ": " + val
	for i, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		var kept []string
		for _, d := range strings.Split(a.Val, ";") {
			d = strings.TrimSpace(d)
			if d == "" || strings.HasPrefix(d, prop+":") {
				continue
			}
			kept = append(kept, d)
		}
		n.Attr[i].Val = strings.Join(append(kept, decl), "; ")
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: decl})
}

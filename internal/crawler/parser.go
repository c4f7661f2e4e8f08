package crawler

import (
	"strings"

	"golang.org/x/net/html"
)

// LinkExtractor pulls outbound references from HTML documents. It
// collects both href and src attributes, so stylesheets, scripts, and
// images are checked alongside anchors.
//
// An extractor is not safe for concurrent use. Reset must be called
// between documents, and the slice returned by Extract is valid only
// until the next Reset.
type LinkExtractor struct {
	seen  map[string]struct{}
	links []string
}

// NewLinkExtractor returns an extractor ready for its first document.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{seen: make(map[string]struct{})}
}

// Reset drops the previous document's links.
func (e *LinkExtractor) Reset() {
	clear(e.seen)
	e.links = e.links[:0]
}

// Extract parses body and returns its references, deduplicated, in
// first-seen order. Documents too broken to parse yield nothing.
func (e *LinkExtractor) Extract(body string) []string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	e.walk(doc)
	return e.links
}

func (e *LinkExtractor) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "href" || attr.Key == "src" {
				e.add(attr.Val)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.walk(c)
	}
}

func (e *LinkExtractor) add(link string) {
	if link == "" {
		return
	}
	if _, ok := e.seen[link]; ok {
		return
	}
	e.seen[link] = struct{}{}
	e.links = append(e.links, link)
}

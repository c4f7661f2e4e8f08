package crawler

import "strings"

// DefaultExcludePrefixes rejects references that are not fetchable
// over HTTP.
var DefaultExcludePrefixes = []string{"mailto:", "tel:"}

// LinkAcceptor decides which extracted references may enter the crawl
// frontier. Rejection is by prefix match against the resolved URL, so
// whole schemes can be excluded alongside site sections.
type LinkAcceptor struct {
	excludePrefixes []string
}

// LinkAcceptorOption configures a LinkAcceptor.
type LinkAcceptorOption func(*LinkAcceptor)

// WithExcludePrefixes replaces the rejected prefix list.
func WithExcludePrefixes(prefixes ...string) LinkAcceptorOption {
	return func(a *LinkAcceptor) {
		a.excludePrefixes = prefixes
	}
}

// NewLinkAcceptor returns an acceptor that rejects
// DefaultExcludePrefixes unless an option overrides the list.
func NewLinkAcceptor(opts ...LinkAcceptorOption) *LinkAcceptor {
	a := &LinkAcceptor{excludePrefixes: DefaultExcludePrefixes}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Accept reports whether url may enter the frontier.
func (a *LinkAcceptor) Accept(url string) bool {
	for _, prefix := range a.excludePrefixes {
		if strings.HasPrefix(url, prefix) {
			return false
		}
	}
	return true
}

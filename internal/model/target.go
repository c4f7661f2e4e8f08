package model

import "strings"

// UnlimitedDepth disables the hop budget: expansion continues until no
// new URLs are discovered.
const UnlimitedDepth = -1

// Target is a single URL queued for checking.
//
// A target is created once, when its URL first enters the frontier, and
// never mutated afterwards. Home records which seed the URL was
// discovered under; relative links found on the page resolve against it.
type Target struct {
	// Home is the seed URL this target traces back to.
	Home string `json:"home"`

	// URL is the absolute URL to fetch.
	URL string `json:"url"`

	// Depth is the remaining hop budget. Links found on this page are
	// enqueued with Depth-1. UnlimitedDepth (-1) decrements forever and
	// never reaches zero, so only deduplication ends the crawl.
	Depth int `json:"depth"`
}

// NewSeedTarget returns the wave-0 target for a seed URL. Seeds are
// their own home.
func NewSeedTarget(seed string, depth int) Target {
	return Target{Home: seed, URL: seed, Depth: depth}
}

// Child returns the target for a link discovered on this page. The
// child inherits this target's home, not the link's own host.
func (t Target) Child(url string) Target {
	return Target{Home: t.Home, URL: url, Depth: t.Depth - 1}
}

// OnSite reports whether the target belongs to the site of its seed.
// The test is substring containment of the seed URL, so
// "http://example.test/docs" is on-site for seed "http://example.test"
// while "http://cdn.example-assets.test" is not.
func (t Target) OnSite() bool {
	return strings.Contains(t.URL, t.Home)
}

// Expandable reports whether links found on this page may still be
// followed. A depth of exactly zero means the page itself is checked
// but its links are not.
func (t Target) Expandable() bool {
	return t.Depth != 0
}

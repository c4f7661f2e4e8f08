// Package main provides the entry point for the linkrot CLI.
//
// Linkrot crawls websites and reports broken links. It follows links on
// the seed site, checks every link it finds, and flags responses with
// HTTP status 400 or above as well as requests that fail on the wire.
//
// Usage:
//
//	linkrot check <url>
//	linkrot compare <url>
//
// See --help for all available options.
package main

// main is the entry point for linkrot.
func main() {
	Execute()
}

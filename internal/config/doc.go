// Package config provides configuration structures and utilities for
// linkrot. It defines the crawl options, per-site overrides loaded
// from the .linkrot file, and report generation preferences.
package config

package config

// SiteConfig holds per-site overrides for a single host. This allows
// tuning crawl behavior for sites that need it (a stricter depth for a
// huge wiki, a different agent for a picky CDN) without changing the
// global flags.
type SiteConfig struct {
	// Depth overrides the global crawl depth for this site.
	// A pointer distinguishes "not set" from the meaningful zero
	// (check the seed only).
	Depth *int `yaml:"depth,omitempty"`

	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// ExcludePrefixes replaces the global exclusion list for this
	// site.
	ExcludePrefixes []string `yaml:"excludePrefixes,omitempty"`

	// Strategy overrides the fetch plan for this site:
	// "head-then-get" or "get-on-site".
	Strategy string `yaml:"strategy,omitempty"`
}

// File represents the structure of the .linkrot configuration file.
type File struct {
	// Sites maps hosts to their overrides. Keys are the host part of
	// the seed URL, port included when non-default (e.g.
	// "docs.example.com" or "localhost:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains overrides applied to all sites unless a
	// site-specific entry replaces them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merging the
// site-specific entry over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Depth != nil {
			result.Depth = siteConfig.Depth
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
		if len(siteConfig.ExcludePrefixes) > 0 {
			result.ExcludePrefixes = siteConfig.ExcludePrefixes
		}
		if siteConfig.Strategy != "" {
			result.Strategy = siteConfig.Strategy
		}
	}

	return result
}

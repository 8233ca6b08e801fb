// Package feeds loads the RSS learning sources and extracts entry titles
// from fetched feed documents.
package feeds

import (
	"net/url"
	"strings"
)

// trustedHosts is the fixed allowlist of feed hosts. A candidate URL is
// accepted only if its host equals or is a subdomain of one of these,
// preventing the learning skill from being redirected to an
// attacker-controlled feed via configuration injection.
var trustedHosts = []string{
	"news.google.com",
	"rss.nytimes.com",
	"feeds.bbci.co.uk",
	"techcrunch.com",
	"arxiv.org",
	"feeds.feedburner.com",
	"rss.cnn.com",
}

// IsAllowedURL reports whether raw points at a trusted feed host.
// Malformed URLs are rejected, never raised.
func IsAllowedURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, trusted := range trustedHosts {
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			return true
		}
	}
	return false
}

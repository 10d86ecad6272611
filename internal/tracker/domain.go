package tracker

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// internalSchemes are browser-owned pages that never count as a website.
var internalSchemes = map[string]bool{
	"about":            true,
	"chrome":           true,
	"chrome-extension": true,
	"chrome-search":    true,
	"devtools":         true,
	"edge":             true,
	"brave":            true,
	"moz-extension":    true,
	"safari-extension": true,
	"view-source":      true,
	"file":             true,
	"data":             true,
	"blob":             true,
	"javascript":       true,
}

// DomainFromURL returns the hostname of rawURL, or "" when the URL cannot be
// parsed, has no host, or belongs to the browser itself. Scheme, port, and
// path are discarded: every page on a host is the same domain.
func DomainFromURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if internalSchemes[strings.ToLower(u.Scheme)] {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Exclusions decides which domains are never tracked.
type Exclusions struct {
	domains []string
	regexes []*regexp.Regexp
}

// NewExclusions compiles the exclusion rules. A domain rule matches the
// domain itself and any of its subdomains.
func NewExclusions(domains, patterns []string) (*Exclusions, error) {
	e := &Exclusions{}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			e.domains = append(e.domains, d)
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile exclusion %q: %w", p, err)
		}
		e.regexes = append(e.regexes, re)
	}
	return e, nil
}

// Excluded reports whether domain is blocked by a rule.
func (e *Exclusions) Excluded(domain string) bool {
	if e == nil || domain == "" {
		return false
	}
	for _, d := range e.domains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	for _, re := range e.regexes {
		if re.MatchString(domain) {
			return true
		}
	}
	return false
}

package display

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IconSource names which step of the fallback chain produced an icon.
type IconSource string

const (
	IconExplicit    IconSource = "favicon"
	IconFromLookup  IconSource = "lookup"
	IconPlaceholder IconSource = "placeholder"
)

// Icon is what a view shows next to a domain. URL is empty for placeholders.
type Icon struct {
	Source      IconSource `json:"source"`
	URL         string     `json:"url,omitempty"`
	Placeholder string     `json:"placeholder"`
}

// IconLookup is a host-provided icon service.
type IconLookup interface {
	Lookup(domain string) (string, bool)
}

// TemplateLookup builds icon URLs from a template containing one %s for
// the domain, e.g. "https://www.google.com/s2/favicons?domain=%s".
type TemplateLookup struct {
	Template string
}

func (l TemplateLookup) Lookup(domain string) (string, bool) {
	if l.Template == "" || domain == "" || !strings.Contains(l.Template, "%s") {
		return "", false
	}
	return fmt.Sprintf(l.Template, url.QueryEscape(domain)), true
}

// IconResolver applies the fallback chain: the stored favicon URL, then the
// lookup service, then a letter placeholder.
type IconResolver struct {
	Lookup IconLookup
}

// Resolve picks the icon for an entry.
func (r IconResolver) Resolve(domain, faviconURL string) Icon {
	placeholder := Placeholder(domain)
	if faviconURL != "" {
		return Icon{Source: IconExplicit, URL: faviconURL, Placeholder: placeholder}
	}
	if r.Lookup != nil {
		if u, ok := r.Lookup.Lookup(domain); ok {
			return Icon{Source: IconFromLookup, URL: u, Placeholder: placeholder}
		}
	}
	return Icon{Source: IconPlaceholder, Placeholder: placeholder}
}

// Placeholder is the upper-cased first letter of domain, or "?".
func Placeholder(domain string) string {
	r, _ := utf8.DecodeRuneInString(domain)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

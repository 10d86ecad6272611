package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.example.com/page", "www.example.com"},
		{"http://blog.test.org/post/123", "blog.test.org"},
		{"https://example.com", "example.com"},
		{"https://Example.COM:8443/a?b=c#d", "example.com"},
		{"http://[::1]:8080/", "::1"},
		{"chrome://newtab/", ""},
		{"chrome-extension://abcdef/popup.html", ""},
		{"about:blank", ""},
		{"file:///home/user/notes.txt", ""},
		{"", ""},
		{"   ", ""},
		{"not a url", ""},
		{"http://%zz/", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, DomainFromURL(tc.url), "domain for %q", tc.url)
	}
}

func TestDomainFromURL_PathsShareDomain(t *testing.T) {
	assert.Equal(t, DomainFromURL("https://example.com/a"), DomainFromURL("https://example.com/b"))
}

func TestExclusions(t *testing.T) {
	e, err := NewExclusions([]string{"Bank.com", " "}, []string{`.*\.internal$`})
	require.NoError(t, err)

	assert.True(t, e.Excluded("bank.com"))
	assert.True(t, e.Excluded("login.bank.com"))
	assert.False(t, e.Excluded("notbank.com"))
	assert.True(t, e.Excluded("wiki.corp.internal"))
	assert.False(t, e.Excluded("example.com"))
	assert.False(t, e.Excluded(""))
}

func TestExclusions_NilMatchesNothing(t *testing.T) {
	var e *Exclusions
	assert.False(t, e.Excluded("example.com"))
}

func TestExclusions_InvalidRegex(t *testing.T) {
	_, err := NewExclusions(nil, []string{"("})
	assert.Error(t, err)
}

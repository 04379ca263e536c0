package vault

import (
	"net/url"
	"strings"
)

// NormalizeDomain reduces a URL or bare host to a lowercase host name
// without port, trailing dot or leading "www.". It returns "" when no host
// can be found.
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	return strings.TrimPrefix(host, "www.")
}

// recordDomain picks the domain of a record: the URL's host when the URL
// parses to one, else the stored domain.
func recordDomain(rawURL, domain string) string {
	if rawURL != "" {
		if d := NormalizeDomain(rawURL); d != "" {
			return d
		}
	}
	return NormalizeDomain(domain)
}

// DomainMatches reports whether two normalised domains are equal or one is
// a label-suffix subdomain of the other: "mail.example.com" matches
// "example.com" in both directions, "badexample.com" does not.
func DomainMatches(candidate, stored string) bool {
	if candidate == "" || stored == "" {
		return false
	}
	return candidate == stored ||
		strings.HasSuffix(candidate, "."+stored) ||
		strings.HasSuffix(stored, "."+candidate)
}

package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var fqdnRe = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// NormalizeHost reduces user input (bare host or full URL) to the
// canonical stored hostname: lowercased, "www." prefix stripped.
// "https://WWW.Example.com/path", "example.com" and "http://example.com"
// all normalize to "example.com".
func NormalizeHost(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty domain: %w", ErrValidation)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("unparseable domain %q: %w", raw, ErrValidation)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if !fqdnRe.MatchString(host) {
		return "", fmt.Errorf("invalid domain %q: %w", host, ErrValidation)
	}
	return host, nil
}

var pathRe = regexp.MustCompile(`^/[a-zA-Z0-9_-]+(/[a-zA-Z0-9_-]+)*$`)

// ValidPath reports whether an endpoint path is acceptable: absolute,
// slash-separated segments of [a-zA-Z0-9_-], no trailing slash.
func ValidPath(p string) bool {
	return pathRe.MatchString(p)
}

var methods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {},
}

// ValidMethod reports whether the HTTP method is one we probe with.
func ValidMethod(m string) bool {
	_, ok := methods[m]
	return ok
}

// ProbeURL builds the fully-qualified URL for an endpoint probe.
func ProbeURL(host, path string) string {
	return "https://" + host + path
}

package vcs

import (
	"fmt"
	"net/url"
	"strings"
)

// parseRepositoryURL checks that raw is an absolute repository URL.
func parseRepositoryURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepositoryURL, err)
	}
	if u.Scheme == "" || (u.Host == "" && u.Scheme != "file") {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidRepositoryURL, redactURL(raw))
	}
	return u, nil
}

// redactURL hides any password in raw.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}

// sameRemote reports whether a and b name the same repository, ignoring
// userinfo, letter case of scheme and host, and a trailing slash.
func sameRemote(a, b string) bool {
	return normalizeRemote(a) == normalizeRemote(b)
}

func normalizeRemote(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.User = nil
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

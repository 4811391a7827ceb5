// Package urlnorm canonicalizes submitted URLs so that equivalent spellings
// dedup to one mapping. Only the canonical form is hashed; callers store and
// return the original string untouched.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url format")

// Normalize validates raw and returns its canonical form: scheme and host
// lower-cased, default ports stripped, dot segments resolved. Userinfo, path
// casing, query and fragment pass through as submitted.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if u.Hostname() == "" {
		return "", ErrInvalidURL
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		// bare IPv6 literal, re-bracket
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && !defaultPort(scheme, port) {
		host += ":" + port
	}

	norm := &url.URL{
		Scheme:   scheme,
		User:     u.User,
		Host:     host,
		Path:     resolveDotSegments(u.Path),
		RawQuery: u.RawQuery,
		Fragment: u.Fragment,
	}
	return norm.String(), nil
}

// Hash fingerprints a normalized URL for the dedup index.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func defaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// resolveDotSegments collapses "." and ".." segments while keeping any
// trailing slash, which path.Clean would drop.
func resolveDotSegments(p string) string {
	if p == "" {
		return ""
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		cleaned = ""
	}
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(cleaned, "/") {
		cleaned += "/"
	}
	return cleaned
}

package model

import (
	"errors"
	"net"
	"net/url"
	"sort"
	"strings"
)

// ErrUnsupportedURL is returned when a URL is not an absolute http(s) URL.
var ErrUnsupportedURL = errors.New("unsupported url: must be absolute http or https")

// defaultPorts maps schemes to the port that is implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL returns the canonical form of rawURL used for frontier and
// deduplication keys. Two URLs that differ only in host case, an explicit
// default port, the fragment or the order of query parameters normalize to
// the same string. NormalizeURL is idempotent.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if _, ok := defaultPorts[u.Scheme]; !ok || u.Host == "" {
		return "", ErrUnsupportedURL
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == defaultPorts[u.Scheme] {
		port = ""
	}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	if u.Path == "" {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		u.RawQuery = sortQuery(u.RawQuery)
	}
	u.ForceQuery = false

	return u.String(), nil
}

// sortQuery orders query parameters by key and then by value, keeping the
// original encoding of each pair.
func sortQuery(rawQuery string) string {
	pairs := strings.FieldsFunc(rawQuery, func(r rune) bool { return r == '&' || r == ';' })
	sort.SliceStable(pairs, func(i, j int) bool {
		ki, vi, _ := strings.Cut(pairs[i], "=")
		kj, vj, _ := strings.Cut(pairs[j], "=")
		if ki != kj {
			return ki < kj
		}
		return vi < vj
	})
	return strings.Join(pairs, "&")
}

// HostOf returns the lower-cased host (with non-default port) of rawURL,
// or an empty string if it cannot be parsed.
func HostOf(rawURL string) string {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Host
}

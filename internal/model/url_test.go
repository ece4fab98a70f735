package model

import (
	"errors"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lower-cases scheme and host", in: "HTTPS://Example-Library.ORG/Kids", want: "https://example-library.org/Kids"},
		{name: "strips default https port", in: "https://example.org:443/a", want: "https://example.org/a"},
		{name: "strips default http port", in: "http://example.org:80/a", want: "http://example.org/a"},
		{name: "keeps other ports", in: "http://example.org:8080/a", want: "http://example.org:8080/a"},
		{name: "strips fragment", in: "https://example.org/a#section", want: "https://example.org/a"},
		{name: "empty path becomes slash", in: "https://example.org", want: "https://example.org/"},
		{name: "sorts query parameters", in: "https://example.org/s?b=2&a=1&a=0", want: "https://example.org/s?a=0&a=1&b=2"},
		{name: "drops empty query", in: "https://example.org/s?", want: "https://example.org/s"},
		{name: "drops user info", in: "https://user:pw@example.org/", want: "https://example.org/"},
		{name: "ipv6 host", in: "http://[::1]:80/x", want: "http://[::1]/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeURL(tt.in)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}

			again, err := NormalizeURL(got)
			if err != nil {
				t.Fatalf("second NormalizeURL(%q) error = %v", got, err)
			}
			if again != got {
				t.Errorf("not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestNormalizeURL_Rejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"mailto:kids@example.org", "ftp://example.org/", "/relative/path", "javascript:void(0)", "https://"} {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			if _, err := NormalizeURL(in); !errors.Is(err, ErrUnsupportedURL) {
				t.Errorf("NormalizeURL(%q) error = %v, want ErrUnsupportedURL", in, err)
			}
		})
	}
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	if got := HostOf("HTTPS://Example.org:443/x"); got != "example.org" {
		t.Errorf("HostOf() = %q, want example.org", got)
	}
	if got := HostOf("not a url"); got != "" {
		t.Errorf("HostOf() = %q, want empty", got)
	}
}

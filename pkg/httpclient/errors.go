package httpclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInit is returned by New when no session could be opened.
	ErrInit = errors.New("http client init failed")
	// ErrUnsupportedMethod is returned for any method other than GET.
	ErrUnsupportedMethod = errors.New("unsupported http method")
	// ErrInvalidURL is returned for URLs that cannot be requested.
	ErrInvalidURL = errors.New("invalid url")
)

// parseURL accepts absolute http and https URLs only.
func parseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	return u, nil
}

package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// IsValidURL accepts either host:port or a url with a scheme and a host.
func IsValidURL(s string) bool {
	if s == "" {
		return false
	}
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		return true
	}
	host, port, err := net.SplitHostPort(s)
	return err == nil && host != "" && port != ""
}

// ValidateURL normalizes s to a dialable address: host:port when a port is
// given, otherwise an http(s) url.
func ValidateURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("url is empty")
	}

	if host, port, err := net.SplitHostPort(s); err == nil && host != "" && port != "" &&
		!strings.Contains(s, "://") {
		return s, nil
	}

	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %s", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	return s, nil
}

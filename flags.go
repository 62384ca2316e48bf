package main

import (
	"fmt"
	"net/url"
	"strings"

	"crypto-trading-bot/internal/preflight"
)

// parseURLChecks turns name=url flag values into checks. A bare URL is named by its host.
func parseURLChecks(values []string) ([]preflight.URLCheck, error) {
	checks := make([]preflight.URLCheck, 0, len(values))
	for _, v := range values {
		name, raw, ok := strings.Cut(v, "=")
		if !ok {
			name, raw = "", v
		}
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid --check-url %q: want name=http(s)://host/path", v)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = u.Host
		}
		checks = append(checks, preflight.URLCheck{Name: name, URL: u.String()})
	}
	return checks, nil
}

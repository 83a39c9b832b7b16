package ratelimit

import (
	"strings"
)

// MatchEndpoint returns the configuration for a request, or nil when the
// default limit applies. The /api prefix is ignored. Health checks are
// unlimited.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if p := strings.TrimPrefix(path, "/api"); p != path && (p == "" || p[0] == '/') {
		path = p
	}

	if path == "/health" && method == "GET" {
		return &EndpointConfig{Path: path}
	}

	// Exact match first
	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) {
			return config
		}
	}

	return nil
}

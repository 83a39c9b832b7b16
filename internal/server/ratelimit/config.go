package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig is the limit for requests matching Path and Method. A Path
// ending in "/" matches by prefix.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per Window
	Window time.Duration
	Burst  int // defaults to Limit
}

// key groups prefix-matched paths into one bucket so that every
// /resumes/{id}/reextract shares a limit.
func (c *EndpointConfig) key(path string) string {
	if c.Path != "" {
		return c.Path
	}
	return path
}

// DefaultEndpointConfigs returns the per-endpoint limits. Reads fall back to
// the default limit.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Ingestion parses files and is the most expensive call.
		{Path: "/resumes", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/resumes/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},

		// Credential endpoints.
		{Path: "/auth/login", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/auth/register", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},

		{Path: "/jobs", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/jobs/", Method: "POST", Limit: 300, Window: time.Minute, Burst: 30},
		{Path: "/ask", Method: "POST", Limit: 300, Window: time.Minute, Burst: 30},
	}
}

// ParseIPList parses a comma-separated list of client ids into a set.
func ParseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}

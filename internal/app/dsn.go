package app

import (
	"net/url"
	"strings"
)

// tracedQueryLimit caps how much SQL is copied into span attributes.
const tracedQueryLimit = 512

// normalizeDBURL appends disable_prepared_binary_result=yes when asked to.
// lib/pq needs the flag behind PgBouncer in transaction pooling mode, where
// prepared statements do not survive between requests. An explicit value in
// the URL always wins.
func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	if !disablePreparedBinaryResult {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	query := parsed.Query()
	if query.Has("disable_prepared_binary_result") {
		return raw
	}

	query.Set("disable_prepared_binary_result", "yes")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// dbNameFromURL extracts the database name from either a postgres:// URL or
// a key=value DSN, for tagging traces. Returns "" when it cannot tell.
func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if parsed, err := url.Parse(trimmed); err == nil && parsed != nil && parsed.Scheme != "" {
		if name := strings.Trim(parsed.Path, "/ "); name != "" {
			return name
		}
	}

	for _, field := range strings.Fields(trimmed) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key != "dbname" {
			continue
		}
		if name := strings.Trim(value, `"'`); name != "" {
			return name
		}
	}

	return ""
}

// formatDBQueryForTrace collapses runs of whitespace so multi-line SQL fits
// on one span attribute line, then truncates oversized statements.
func formatDBQueryForTrace(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if len(normalized) <= tracedQueryLimit {
		return normalized
	}
	return normalized[:tracedQueryLimit] + "..."
}

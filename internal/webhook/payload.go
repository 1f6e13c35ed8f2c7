// Package webhook extracts a card identifier from inbound payloads whose
// schema varies by trigger source and board version. Known shapes are
// probed in priority order before falling back to a bounded recursive
// search.
package webhook

import (
	"sort"
	"strconv"
	"strings"
)

// MinPlausibleID is the exclusive lower bound for a value to count as a
// card id. Real card ids are large; small integers show up all over
// webhook payloads (versions, counts, enum values) and must not win.
const MinPlausibleID = 1000

// maxSearchDepth caps the recursive fallback scan.
const maxSearchDepth = 5

// idPaths are the known payload shapes, most specific first. The
// standard webhook carries the card under data.old; the rest are shapes
// observed from older board versions and manual invocations.
var idPaths = [][]string{
	{"data", "old", "id"},
	{"id"},
	{"card_id"},
	{"card", "id"},
	{"card"},
	{"data", "id"},
	{"data", "changes", "id"},
	{"payload", "id"},
	{"webhook", "id"},
}

// ResolveCardID extracts a plausible card id from a decoded payload.
// Absence is a normal outcome, never a panic: callers surface it as a
// client-input error.
func ResolveCardID(payload map[string]any) (int64, bool) {
	for _, path := range idPaths {
		if v, ok := dig(payload, path); ok {
			if id, ok := plausibleID(v); ok {
				return id, true
			}
		}
	}
	return findIDRecursive(payload, 0)
}

// ResolveFromQuery probes a flat query-parameter map for an explicit
// card id key.
func ResolveFromQuery(params map[string]string) (int64, bool) {
	raw, ok := params["card_id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// IgnorableEvent reports whether the payload names an event type that is
// unrelated to card updates and can be acknowledged without processing.
func IgnorableEvent(payload map[string]any) bool {
	eventType := ""
	for _, key := range []string{"event", "type"} {
		if s, ok := payload[key].(string); ok && s != "" {
			eventType = s
			break
		}
	}
	if eventType == "" {
		return false
	}
	lower := strings.ToLower(eventType)
	return !strings.Contains(lower, "card") && !strings.Contains(lower, "update")
}

// dig walks a key path through nested maps.
func dig(payload map[string]any, path []string) (any, bool) {
	var current any = payload
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// plausibleID accepts integers (or integer-looking strings) above the
// plausibility threshold.
func plausibleID(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		n := int64(t)
		if float64(n) == t && n > MinPlausibleID {
			return n, true
		}
	case int:
		if int64(t) > MinPlausibleID {
			return int64(t), true
		}
	case int64:
		if t > MinPlausibleID {
			return t, true
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil && n > MinPlausibleID {
			return n, true
		}
	}
	return 0, false
}

// findIDRecursive scans the whole structure, depth-capped, for any key
// literally named "id" whose value passes the plausibility filter.
func findIDRecursive(v any, depth int) (int64, bool) {
	if depth >= maxSearchDepth {
		return 0, false
	}

	switch t := v.(type) {
	case map[string]any:
		if raw, ok := t["id"]; ok {
			if id, ok := plausibleID(raw); ok {
				return id, true
			}
		}
		// Sorted keys keep the winner stable when several plausible ids
		// sit at the same depth.
		keys := make([]string, 0, len(t))
		for key := range t {
			if key != "id" {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			if id, ok := findIDRecursive(t[key], depth+1); ok {
				return id, true
			}
		}
	case []any:
		for _, item := range t {
			if id, ok := findIDRecursive(item, depth+1); ok {
				return id, true
			}
		}
	}
	return 0, false
}

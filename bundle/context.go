package bundle

import (
	"encoding/json"
	"strings"
)

// ParseContext normalizes a node's raw context field into a map, accepting
// the three forms spec §4.13 names: an already-parsed mapping, a JSON
// object string, or a comma-separated "key:value"/"key=value" sequence. An
// unparseable string becomes {"description": raw}.
func ParseContext(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case string:
		return parseContextString(v)
	default:
		return map[string]any{}
	}
}

func parseContextString(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}
	}

	if strings.HasPrefix(trimmed, "{") {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
	}

	if pairs, ok := parseKeyValuePairs(trimmed); ok {
		return pairs
	}

	return map[string]any{"description": raw}
}

func parseKeyValuePairs(raw string) (map[string]any, bool) {
	parts := strings.Split(raw, ",")
	out := make(map[string]any, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sep := strings.IndexAny(part, ":=")
		if sep <= 0 {
			return nil, false
		}
		key := strings.TrimSpace(part[:sep])
		value := strings.TrimSpace(part[sep+1:])
		if key == "" {
			return nil, false
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

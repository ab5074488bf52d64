package observability

import (
	"encoding/json"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// credentialKeyFragments are lowercase substrings that flag a JSON object key
// as holding a credential. Findings, citations, and rate-limit state all
// round-trip through the persistence layer as raw JSON, and any one of them
// could carry an engine's API key or bearer token in a field an adapter
// forgot to strip before logging it. RedactJSON scrubs those fields before
// the payload reaches a log line.
var credentialKeyFragments = []string{
	"api_key", "apikey", "x-api-key", "authorization", "auth", "token",
	"access_token", "refresh_token", "password", "secret", "bearer",
}

// RedactJSON parses raw as JSON and replaces the value of any object key
// matching a credential-like name with a placeholder, recursing through
// nested objects and arrays. raw is returned unchanged if it's empty or not
// valid JSON.
func RedactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return raw
	}
	scrubbed, err := json.Marshal(scrub(parsed))
	if err != nil {
		return raw
	}
	return scrubbed
}

func scrub(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for key, val := range node {
			if looksLikeCredentialKey(key) {
				node[key] = redactedPlaceholder
				continue
			}
			node[key] = scrub(val)
		}
		return node
	case []any:
		for i, elem := range node {
			node[i] = scrub(elem)
		}
		return node
	default:
		return v
	}
}

func looksLikeCredentialKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range credentialKeyFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}


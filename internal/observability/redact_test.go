package observability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactJSONScrubsCredentialKeysAtAnyDepth(t *testing.T) {
	in := map[string]any{
		"api_key": "secret123",
		"user": map[string]any{
			"name":     "alice",
			"password": "hunter2",
		},
		"results": []any{
			map[string]any{"token": "tok"},
			"plain",
		},
		"title": "keepme",
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	out := RedactJSON(raw)

	var v map[string]any
	require.NoError(t, json.Unmarshal(out, &v))
	require.Equal(t, redactedPlaceholder, v["api_key"])

	user, ok := v["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, redactedPlaceholder, user["password"])
	require.Equal(t, "alice", user["name"])

	results, ok := v["results"].([]any)
	require.True(t, ok)
	first, ok := results[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, redactedPlaceholder, first["token"])
	require.Equal(t, "plain", results[1])

	require.Equal(t, "keepme", v["title"])
}

func TestRedactJSONPassesThroughEmptyOrInvalidInput(t *testing.T) {
	require.Nil(t, RedactJSON(nil))

	invalid := json.RawMessage("not json")
	require.Equal(t, invalid, RedactJSON(invalid))
}

func TestRedactJSONMatchesCaseInsensitiveKeyVariants(t *testing.T) {
	in := map[string]any{"X-Api-Key": "abc", "Authorization": "Bearer xyz"}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal(RedactJSON(raw), &v))
	require.Equal(t, redactedPlaceholder, v["X-Api-Key"])
	require.Equal(t, redactedPlaceholder, v["Authorization"])
}

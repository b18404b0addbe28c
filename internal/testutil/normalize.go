package testutil

import (
	"bytes"
	"encoding/json"
	"testing"
)

// Placeholder replaces volatile values in normalized output.
const Placeholder = "<volatile>"

// NormalizeJSON renders data as canonical JSON for golden comparison: keys
// sorted, 2-space indentation, no HTML escaping and a trailing newline.
// Values of object keys named in volatile are replaced with Placeholder at
// any depth. data may be a value or already-encoded JSON bytes.
func NormalizeJSON(t *testing.T, data any, volatile ...string) []byte {
	t.Helper()

	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			t.Fatalf("Failed to marshal data for normalization: %v", err)
		}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}

	skip := make(map[string]bool, len(volatile))
	for _, k := range volatile {
		skip[k] = true
	}
	decoded = normalizeValue(decoded, skip)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// map[string]any is encoded with sorted keys.
	if err := enc.Encode(decoded); err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return buf.Bytes()
}

func normalizeValue(v any, volatile map[string]bool) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			if volatile[k] {
				val[k] = Placeholder
				continue
			}
			val[k] = normalizeValue(item, volatile)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item, volatile)
		}
		return val
	default:
		return v
	}
}

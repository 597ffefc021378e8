package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gowebpki/jcs"
)

// canonicalJSON re-serializes v through RFC 8785 (JSON Canonicalization
// Scheme) so every bundle type shares one definition of "deterministic field
// ordering".
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// roundConfidence rounds a confidence value to 4 decimal places on emit, per
// the serialization contract.
func roundConfidence(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// roundAll walks a decoded JSON value (as produced by encoding/json with
// UseNumber disabled) and rounds every float64 to 4 decimals; strings,
// timestamps included, pass through unchanged. It operates on the
// generic map/slice form so it applies uniformly across every bundle type
// without per-type boilerplate.
func roundAll(v interface{}) interface{} {
	switch t := v.(type) {
	case float64:
		return roundConfidence(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = roundAll(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = roundAll(val)
		}
		return out
	default:
		return v
	}
}

// Marshal serializes v (a bundle type) to its deterministic wire form: fields
// rounded to 4 decimals, then re-marshaled with stable key ordering via JCS.
// Marshal does not itself validate; callers that must not persist an
// invalid bundle call Validate first.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("schema: marshal: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("schema: decode intermediate: %w", err)
	}
	rounded := roundAll(generic)
	out, err := canonicalJSON(rounded)
	if err != nil {
		return nil, fmt.Errorf("schema: canonicalize: %w", err)
	}
	return out, nil
}

// NormalizeTimestamp parses a timestamp leniently and re-emits it as RFC3339
// in UTC, per the serialization contract.
func NormalizeTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Lenient fallback formats seen in the wild.
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t2, err2 := time.Parse(layout, s); err2 == nil {
				return t2.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("schema: unparseable timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

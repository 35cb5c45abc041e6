package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// toAttributes converts a feature dict with mixed value types to float
// attributes.
//
// Conversion rules:
//   - string value: "key=value" → 1.0
//   - list of strings: "key:item" → 1.0 for each item
//   - bool value: "key" → 1.0 if true
//   - number: "key" → value
func toAttributes(features map[string]any) map[string]float64 {
	attrs := make(map[string]float64)
	for key, val := range features {
		switch v := val.(type) {
		case string:
			attrs[fmt.Sprintf("%s=%s", key, v)] = 1.0
		case []any:
			for _, item := range v {
				attrs[fmt.Sprintf("%s:%v", key, item)] = 1.0
			}
		case []string:
			for _, item := range v {
				attrs[fmt.Sprintf("%s:%s", key, item)] = 1.0
			}
		case bool:
			if v {
				attrs[key] = 1.0
			}
		case int:
			attrs[key] = float64(v)
		case float64:
			attrs[key] = v
		default:
			attrs[key] = 1.0
		}
	}
	return attrs
}

// vectorize turns a raw feature value into a vector ordered by names. The raw
// value is either a JSON array of numbers of the right length or an object
// converted with toAttributes; attributes not in names are ignored and
// missing ones are zero.
func vectorize(raw json.RawMessage, names []string) ([]float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return make([]float64, len(names)), nil
	}

	if raw[0] == '[' {
		var v []float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if len(v) != len(names) {
			return nil, fmt.Errorf("got %d features, want %d", len(v), len(names))
		}
		return v, nil
	}

	var dict map[string]any
	if err := json.Unmarshal(raw, &dict); err != nil {
		return nil, err
	}
	attrs := toAttributes(dict)
	v := make([]float64, len(names))
	for i, name := range names {
		v[i] = attrs[name]
	}
	return v, nil
}

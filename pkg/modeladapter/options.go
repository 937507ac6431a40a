package modeladapter

import "encoding/json"

// Options holds generation options passed to the backend, keyed by the wire
// name the backend expects (temperature, n, max_tokens, response_format, ...).
type Options map[string]any

// Clone returns a shallow copy of the options map. A nil receiver yields an
// empty, non-nil map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge returns a copy of o with each key in overrides overwritten. Keys in o
// absent from overrides are preserved; neither input map is modified.
func (o Options) Merge(overrides Options) Options {
	out := o.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Int reads an integer option, tolerating the numeric types JSON decoding and
// YAML decoding produce. Missing or non-numeric values fall back to def.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}

	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}

	return def
}

// Float reads a float option with the same tolerance as Int.
func (o Options) Float(key string, def float64) float64 {
	v, ok := o[key]
	if !ok {
		return def
	}

	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}

	return def
}

// Package archive flattens NSKeyedArchiver property lists into plain nested
// maps. Object references ($objects / UID) and class metadata ($class) are
// resolved away, leaving strings, numbers, byte slices, times, []any and
// map[string]any.
package archive

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"howett.net/plist"
)

// ErrMalformed is wrapped by every error caused by archive contents (as
// opposed to I/O).
var ErrMalformed = errors.New("malformed keyed archive")

const maxDepth = 64

// appleEpoch is the reference date of NS.time values.
var appleEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Decode reads a property list in any format (binary, XML, OpenStep).
func Decode(r io.ReadSeeker) (any, error) {
	var v any
	if err := plist.NewDecoder(r).Decode(&v); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "decode plist: %v", err)
	}
	return v, nil
}

// ParseFile decodes and deep-parses the keyed archive at path.
func ParseFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := Decode(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return DeepParse(raw)
}

// DeepParse resolves the root object of a decoded keyed archive into a
// plain map.
func DeepParse(raw any) (map[string]any, error) {
	top, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(ErrMalformed, "top level is %T, want dictionary", raw)
	}
	objects, ok := top["$objects"].([]any)
	if !ok {
		return nil, errors.Wrap(ErrMalformed, "missing $objects")
	}
	header, ok := top["$top"].(map[string]any)
	if !ok {
		return nil, errors.Wrap(ErrMalformed, "missing $top")
	}
	rootRef, ok := header["root"].(plist.UID)
	if !ok {
		return nil, errors.Wrap(ErrMalformed, "missing $top.root reference")
	}

	r := &resolver{objects: objects, visiting: make(map[plist.UID]bool)}
	root, err := r.resolve(rootRef, 0)
	if err != nil {
		return nil, err
	}
	m, ok := root.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(ErrMalformed, "root object is %T, want dictionary", root)
	}
	return m, nil
}

type resolver struct {
	objects  []any
	visiting map[plist.UID]bool
}

func (r *resolver) resolve(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.Wrap(ErrMalformed, "object graph too deep")
	}
	switch t := v.(type) {
	case plist.UID:
		if uint64(t) >= uint64(len(r.objects)) {
			return nil, errors.Wrapf(ErrMalformed, "reference %d out of range (%d objects)", t, len(r.objects))
		}
		// Back-references are cut instead of expanded forever.
		if r.visiting[t] {
			return nil, nil
		}
		obj := r.objects[t]
		if s, ok := obj.(string); ok && s == "$null" {
			return nil, nil
		}
		r.visiting[t] = true
		defer delete(r.visiting, t)
		return r.resolve(obj, depth+1)
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			res, err := r.resolve(item, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
		return out, nil
	case map[string]any:
		return r.resolveObject(t, depth)
	default:
		return v, nil
	}
}

func (r *resolver) resolveObject(obj map[string]any, depth int) (any, error) {
	keys, hasKeys := obj["NS.keys"].([]any)
	values, hasValues := obj["NS.objects"].([]any)
	switch {
	case hasKeys && hasValues:
		if len(keys) != len(values) {
			return nil, errors.Wrapf(ErrMalformed, "dictionary has %d keys and %d values", len(keys), len(values))
		}
		out := make(map[string]any, len(keys))
		for i := range keys {
			k, err := r.resolve(keys[i], depth+1)
			if err != nil {
				return nil, err
			}
			v, err := r.resolve(values[i], depth+1)
			if err != nil {
				return nil, err
			}
			out[keyString(k)] = v
		}
		return out, nil
	case hasValues:
		return r.resolve(values, depth)
	}
	if s, ok := obj["NS.string"]; ok {
		return r.resolve(s, depth+1)
	}
	if b, ok := obj["NS.bytes"]; ok {
		return b, nil
	}
	if b, ok := obj["NS.data"]; ok {
		return r.resolve(b, depth+1)
	}
	if ts, ok := obj["NS.time"]; ok {
		if secs, ok := toFloat(ts); ok {
			return appleEpoch.Add(time.Duration(secs * float64(time.Second))), nil
		}
	}

	// Plain archived object: its encoded fields become map entries.
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == "$class" {
			continue
		}
		res, err := r.resolve(v, depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = res
	}
	return out, nil
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// String returns m[key] when it holds a string.
func String(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Map returns m[key] when it holds a nested map.
func Map(m map[string]any, key string) (map[string]any, bool) {
	sub, ok := m[key].(map[string]any)
	return sub, ok
}

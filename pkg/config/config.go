// Package config implements the hierarchical configuration model shared
// along a provisioning run: string keys mapping to scalar values or nested
// sections. Lookups never fail; they report presence with an ok bool.
// Merging is fill-missing-only, so values set earlier in a trigger chain
// always win over package defaults merged in later.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the value variants a Config can hold
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindMap
)

// Value is a tagged scalar-or-section configuration value
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	m    Config
}

// String builds a string Value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int builds an integer Value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float builds a float Value
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool builds a boolean Value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Section builds a nested-section Value
func Section(c Config) Value { return Value{kind: KindMap, m: c} }

// Kind returns the variant tag
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string form of the value. Scalars are stringified;
// sections report ok=false.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// AsInt returns the value as an int64 when it is one
func (v Value) AsInt() (int64, bool) {
	if v.kind == KindInt {
		return v.i, true
	}
	return 0, false
}

// AsBool returns the value as a bool when it is one
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// AsSection returns the nested Config when the value is a section
func (v Value) AsSection() (Config, bool) {
	if v.kind == KindMap {
		return v.m, true
	}
	return nil, false
}

// Interface returns the value as a plain Go value (nested sections become
// map[string]interface{})
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMap:
		return v.m.ToMap()
	default:
		return nil
	}
}

// Config is a hierarchical string-keyed configuration mapping. The map is a
// reference type: contexts forked for another user share the same Config.
type Config map[string]Value

// New creates an empty Config
func New() Config {
	return make(Config)
}

// FromMap converts a plain nested map (as produced by manifest parsers)
// into a Config. Unsupported value types are an error.
func FromMap(m map[string]interface{}) (Config, error) {
	cfg := New()
	for k, raw := range m {
		v, err := fromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		cfg[k] = v
	}
	return cfg, nil
}

func fromAny(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		// TOML/YAML parsers hand integers back as float64 in places
		if t == float64(int64(t)) {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case map[string]interface{}:
		nested, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Section(nested), nil
	default:
		return Value{}, fmt.Errorf("unsupported config value type %T", raw)
	}
}

// ToMap converts the Config back to a plain nested map
func (c Config) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(c))
	for k, v := range c {
		out[k] = v.Interface()
	}
	return out
}

// Get resolves a dotted path ("nginx.worker_processes") against the
// hierarchy. Absence is reported with ok=false, never an error.
func (c Config) Get(path string) (Value, bool) {
	parts := strings.Split(path, ".")
	cur := c
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return Value{}, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		nested, ok := v.AsSection()
		if !ok {
			return Value{}, false
		}
		cur = nested
	}
	return Value{}, false
}

// GetString resolves a dotted path to its string form
func (c Config) GetString(path string) (string, bool) {
	v, ok := c.Get(path)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Set stores a value at a dotted path, creating intermediate sections as
// needed. An intermediate scalar is replaced by a section.
func (c Config) Set(path string, v Value) {
	parts := strings.Split(path, ".")
	cur := c
	for _, part := range parts[:len(parts)-1] {
		existing, ok := cur[part]
		if ok {
			if nested, isMap := existing.AsSection(); isMap {
				cur = nested
				continue
			}
		}
		nested := New()
		cur[part] = Section(nested)
		cur = nested
	}
	cur[parts[len(parts)-1]] = v
}

// Merge fills keys from defaults that are missing in c. Keys already
// present are never overwritten; nested sections merge key-by-key. The
// operation is idempotent: merging the same defaults twice equals once.
func (c Config) Merge(defaults Config) {
	for k, dv := range defaults {
		existing, ok := c[k]
		if !ok {
			c[k] = dv.deepCopy()
			continue
		}
		dstSection, dstIsMap := existing.AsSection()
		srcSection, srcIsMap := dv.AsSection()
		if dstIsMap && srcIsMap {
			dstSection.Merge(srcSection)
		}
		// scalar already present: keep it
	}
}

// Clone returns a deep copy, detached from the receiver
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v.deepCopy()
	}
	return out
}

func (v Value) deepCopy() Value {
	if v.kind != KindMap {
		return v
	}
	return Section(v.m.Clone())
}

// Keys returns the top-level keys in sorted order
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

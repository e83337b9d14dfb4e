package core

import (
	"encoding/json"
	"strconv"
)

// Tree is a read-only view over a decoded JSON value (objects, arrays and scalars).
// Every accessor is total: walking into a missing key, an out-of-range index or a
// value of the wrong kind yields the zero Tree instead of failing.
type Tree struct {
	v any
}

// NewTree wraps an already decoded JSON value.
func NewTree(v any) Tree {
	return Tree{v: v}
}

// ParseTree decodes raw JSON into a Tree.
func ParseTree(data []byte) (Tree, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Tree{}, err
	}
	return Tree{v: v}, nil
}

// MarshalJSON encodes the underlying value.
func (t Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.v)
}

// UnmarshalJSON decodes any JSON value into the tree.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	t.v = v
	return nil
}

// Get walks object keys in order.
func (t Tree) Get(keys ...string) Tree {
	cur := t.v
	for _, key := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return Tree{}
		}
		cur = obj[key]
	}
	return Tree{v: cur}
}

// Index returns the i-th element of an array.
func (t Tree) Index(i int) Tree {
	arr, ok := t.v.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return Tree{}
	}
	return Tree{v: arr[i]}
}

// List returns the elements of an array, or nil for anything else.
func (t Tree) List() []Tree {
	arr, ok := t.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Tree, len(arr))
	for i, v := range arr {
		out[i] = Tree{v: v}
	}
	return out
}

// String returns the value as a string. Numbers and booleans are formatted,
// objects, arrays and null become "".
func (t Tree) String() string {
	switch v := t.v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Float returns a numeric value. Numeric strings are accepted.
func (t Tree) Float() (float64, bool) {
	switch v := t.v.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Object reports whether the value is a JSON object.
func (t Tree) Object() bool {
	_, ok := t.v.(map[string]any)
	return ok
}

// Keys returns the object's keys, or nil.
func (t Tree) Keys() []string {
	obj, ok := t.v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys
}

// IsZero reports whether the tree holds nothing (missing or JSON null).
func (t Tree) IsZero() bool {
	return t.v == nil
}

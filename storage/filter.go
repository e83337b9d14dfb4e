package storage

import "fmt"

// Filter restricts vector search to records whose metadata matches.
type Filter interface {
	Match(metadata map[string]any) bool
}

type inFilter struct {
	field  string
	values map[string]struct{}
}

// In matches records whose scalar metadata field equals one of values.
// An empty value set matches nothing.
func In(field string, values ...string) Filter {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return &inFilter{field: field, values: set}
}

func (f *inFilter) Match(metadata map[string]any) bool {
	v, ok := metadata[f.field]
	if !ok || v == nil {
		return false
	}
	var key string
	switch s := v.(type) {
	case string:
		key = s
	default:
		key = fmt.Sprint(s)
	}
	_, ok = f.values[key]
	return ok
}

func (f *inFilter) String() string {
	return fmt.Sprintf("%s IN (%d values)", f.field, len(f.values))
}

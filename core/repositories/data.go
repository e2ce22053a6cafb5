package repositories

import "github.com/jrazmi/growlog/core/scaffolding/fop"

// Put assigns *v to name when v is not nil.
func Put[V any](r Row, name string, v *V) {
	if v != nil {
		r[name] = *v
	}
}

// PutOptional assigns name when o is set, null included.
func PutOptional[V any](r Row, name string, o fop.Optional[V]) {
	if o.IsSet() {
		r[name] = o.Any()
	}
}

// PutLinks records a many-to-many change under the relation name when it
// changes anything.
func PutLinks(r Row, relation string, set *fop.LinkSet) {
	if set != nil && !set.Empty() {
		r[relation] = *set
	}
}

// Unique collects the non-empty identifying values of a typed unique
// criteria struct.
func Unique(pairs ...any) map[string]any {
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case string:
			if v != "" {
				out[name] = v
			}
		case *string:
			if v != nil {
				out[name] = *v
			}
		}
	}
	return out
}

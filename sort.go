package restquery

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"
)

// SortTerm is one entry of a sort order. It is either a signed field name
// ("name", "-created") or a keyed term ({"name": "desc"}, {"points": -1}).
type SortTerm struct {
	// Signed holds the shorthand form; a leading "-" means descending.
	Signed string
	// Field and Direction hold the keyed form. Direction is an integer, used
	// verbatim, or one of "asc", "desc", "default".
	Field     string
	Direction any

	keyedForm bool
}

// SortBy returns a shorthand sort term.
func SortBy(signed string) SortTerm {
	return SortTerm{Signed: signed}
}

// SortKey returns a keyed sort term.
func SortKey(field string, direction any) SortTerm {
	return SortTerm{Field: field, Direction: direction, keyedForm: true}
}

// keyed reports whether t is the keyed form. An empty field name is still a
// keyed term when built by SortKey or decoded from an object.
func (t SortTerm) keyed() bool {
	return t.keyedForm || t.Field != ""
}

// UnmarshalJSON accepts both "-field" and {"field": direction}.
func (t *SortTerm) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	term, err := sortTermFromValue(v)
	if err != nil {
		return err
	}
	*t = term
	return nil
}

// UnmarshalYAML accepts both "-field" and {field: direction}.
func (t *SortTerm) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	term, err := sortTermFromValue(v)
	if err != nil {
		return err
	}
	*t = term
	return nil
}

func sortTermFromValue(v any) (SortTerm, error) {
	switch t := v.(type) {
	case string:
		return SortBy(t), nil
	case map[string]any:
		if len(t) != 1 {
			return SortTerm{}, fmt.Errorf("%w: sort object must have exactly one key", ErrInvalidInput)
		}
		for k, dir := range t {
			return SortKey(k, dir), nil
		}
	}
	return SortTerm{}, fmt.Errorf("%w: unsupported sort term %T", ErrInvalidInput, v)
}

// SortField is a single field and its direction.
type SortField struct {
	Field     string
	Direction int
}

// SortSpec is an ordered field to direction mapping.
type SortSpec []SortField

// Direction returns the direction stored for field.
func (s SortSpec) Direction(field string) (int, bool) {
	for _, f := range s {
		if f.Field == field {
			return f.Direction, true
		}
	}
	return 0, false
}

// BSON renders the spec as a MongoDB sort document.
func (s SortSpec) BSON() bson.D {
	out := make(bson.D, 0, len(s))
	for _, f := range s {
		out = append(out, bson.E{Key: f.Field, Value: f.Direction})
	}
	return out
}

// set keeps the position of an existing field and replaces its direction.
func (s SortSpec) set(field string, direction int) SortSpec {
	for i := range s {
		if s[i].Field == field {
			s[i].Direction = direction
			return s
		}
	}
	return append(s, SortField{Field: field, Direction: direction})
}

// CompileSort normalises terms into a SortSpec. A nil terms slice means no
// sort and yields nil. Keyed terms with an unknown named direction are
// dropped; later terms for the same field overwrite earlier ones.
func CompileSort(terms []SortTerm) SortSpec {
	if terms == nil {
		return nil
	}
	spec := SortSpec{}
	for _, term := range terms {
		if !term.keyed() {
			if field, ok := strings.CutPrefix(term.Signed, "-"); ok {
				spec = spec.set(field, -1)
			} else {
				spec = spec.set(term.Signed, 1)
			}
			continue
		}
		if n, ok := integerValue(term.Direction); ok {
			spec = spec.set(term.Field, n)
			continue
		}
		switch term.Direction {
		case "desc":
			spec = spec.set(term.Field, -1)
		case "asc", "default":
			spec = spec.set(term.Field, 1)
		}
	}
	return spec
}

func integerValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return integerValue(float64(n))
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

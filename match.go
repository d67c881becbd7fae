package restquery

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Match evaluates p against doc in memory, following MongoDB semantics for
// missing fields and array-valued fields.
func (p *Predicate) Match(doc Document) bool {
	if p.IsEmpty() {
		return true
	}
	for _, c := range p.Clauses {
		if !c.Match(doc) {
			return false
		}
	}
	if p.Or != nil {
		v, ok := Lookup(doc, p.Or.Field)
		if !ok {
			return false
		}
		return anyValue(v, func(x any) bool { return less(x, p.Or.Lo) }) ||
			anyValue(v, func(x any) bool { return less(p.Or.Hi, x) })
	}
	return true
}

// Match evaluates a single clause against doc.
func (c FieldClause) Match(doc Document) bool {
	v, found := Lookup(doc, c.Field)
	switch c.Op {
	case OpEq:
		return found && anyValue(v, func(x any) bool { return equal(x, c.Value) })
	case OpNe:
		return !found || !anyValue(v, func(x any) bool { return equal(x, c.Value) })
	case OpRegex, OpNotRegex:
		re := c.re
		if re == nil {
			var err error
			if re, err = compilePattern(c.Value); err != nil {
				return false
			}
		}
		// The store-side negative lookahead matches any string element that
		// does not contain the pattern.
		negate := c.Op == OpNotRegex
		return found && anyValue(v, func(x any) bool {
			s, ok := x.(string)
			return ok && re.MatchString(s) != negate
		})
	case OpLt:
		return found && anyValue(v, func(x any) bool { return less(x, c.Value) })
	case OpLte:
		return found && anyValue(v, func(x any) bool { return less(x, c.Value) || equal(x, c.Value) })
	case OpGt:
		return found && anyValue(v, func(x any) bool { return less(c.Value, x) })
	case OpGte:
		return found && anyValue(v, func(x any) bool { return less(c.Value, x) || equal(x, c.Value) })
	case OpIn:
		return found && c.in(v)
	case OpNotIn:
		return !found || !c.in(v)
	case OpBetween:
		b := c.members()
		if !found || len(b) != 2 {
			return false
		}
		return anyValue(v, func(x any) bool {
			return (less(b[0], x) || equal(x, b[0])) && (less(x, b[1]) || equal(x, b[1]))
		})
	}
	return false
}

func (c FieldClause) in(v any) bool {
	for _, m := range c.members() {
		if anyValue(v, func(x any) bool { return equal(x, m) }) {
			return true
		}
	}
	return false
}

// Lookup resolves a dotted path inside doc.
func Lookup(doc Document, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case bson.M:
		return m, true
	case bson.D:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

// anyValue applies fn to v, or to each element when v is an array.
func anyValue(v any, fn func(any) bool) bool {
	if fn(v) {
		return true
	}
	if _, isBytes := v.([]byte); isBytes {
		return false
	}
	if items, ok := arrayValue(v); ok {
		for _, item := range items {
			if fn(item) {
				return true
			}
		}
	}
	return false
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func less(a, b any) bool {
	c, ok := compare(a, b)
	return ok && c < 0
}

// compare orders two values of compatible kinds. ok is false when the kinds
// cannot be ordered against each other.
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), true
		}
		return 0, false
	}
	sa, okA := toString(a)
	sb, okB := toString(b)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bson.ObjectID:
		return s.Hex(), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// CompareValues orders a and b for sorting. Values that cannot be ordered
// against each other sort by type name, and missing values sort first.
func CompareValues(a, b any) int {
	if c, ok := compare(a, b); ok {
		return c
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

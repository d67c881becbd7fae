package restquery

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// FilterClause is a single client-supplied filter: Key Operator Value.
type FilterClause struct {
	Key      string `json:"key" yaml:"key"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
}

// Op identifies the comparison a FieldClause performs.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpRegex
	OpNotRegex
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	OpNotIn
	OpBetween
)

const notBetween = "not between"

var operators = map[string]Op{
	"==":      OpEq,
	"!=":      OpNe,
	"~":       OpRegex,
	"!~":      OpNotRegex,
	"<":       OpLt,
	"<=":      OpLte,
	">":       OpGt,
	">=":      OpGte,
	"in":      OpIn,
	"not in":  OpNotIn,
	"between": OpBetween,
}

var opNames = map[Op]string{
	OpEq:       "==",
	OpNe:       "!=",
	OpRegex:    "~",
	OpNotRegex: "!~",
	OpLt:       "<",
	OpLte:      "<=",
	OpGt:       ">",
	OpGte:      ">=",
	OpIn:       "in",
	OpNotIn:    "not in",
	OpBetween:  "between",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// FieldClause constrains a single field.
//
// Value holds the scalar operand, the pattern source for OpRegex and
// OpNotRegex, the member list ([]any) for OpIn and OpNotIn, and the
// two-element bounds ([]any) for OpBetween.
type FieldClause struct {
	Field string
	Op    Op
	Value any

	re *regexp.Regexp
}

// Pattern returns the regular expression source sent to the store.
func (c FieldClause) Pattern() string {
	s, _ := c.Value.(string)
	if c.Op == OpNotRegex {
		return "^((?!" + s + ").)*$"
	}
	return s
}

// Disjunction matches documents whose field lies outside [Lo, Hi].
type Disjunction struct {
	Field string
	Lo    any
	Hi    any
}

// Predicate is a conjunction of per-field clauses plus at most one top-level
// disjunction. A nil or empty Predicate matches every document.
type Predicate struct {
	Clauses []FieldClause
	Or      *Disjunction
}

// IsEmpty reports whether p places no constraint on documents.
func (p *Predicate) IsEmpty() bool {
	return p == nil || (len(p.Clauses) == 0 && p.Or == nil)
}

// Clause returns the clause set for field, if any.
func (p *Predicate) Clause(field string) (FieldClause, bool) {
	if p == nil {
		return FieldClause{}, false
	}
	for _, c := range p.Clauses {
		if c.Field == field {
			return c, true
		}
	}
	return FieldClause{}, false
}

// put replaces the clause for the same field in place, or appends.
func (p *Predicate) put(c FieldClause) {
	for i := range p.Clauses {
		if p.Clauses[i].Field == c.Field {
			p.Clauses[i] = c
			return
		}
	}
	p.Clauses = append(p.Clauses, c)
}

// Equals builds a predicate matching documents whose fields equal every
// key/value pair of fields.
func Equals(fields Document) *Predicate {
	p := &Predicate{}
	for _, k := range sortedKeys(fields) {
		p.put(FieldClause{Field: k, Op: OpEq, Value: fields[k]})
	}
	return p
}

func sortedKeys(m Document) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ByID builds a primary key lookup.
func ByID(id string) *Predicate {
	return &Predicate{Clauses: []FieldClause{{Field: IDField, Op: OpEq, Value: id}}}
}

// CompilePredicate folds clauses, in order, into a single Predicate.
func CompilePredicate(clauses []FilterClause) (*Predicate, error) {
	p := &Predicate{}
	for _, in := range clauses {
		if in.Operator == notBetween {
			bounds, ok := arrayValue(in.Value)
			if !ok || len(bounds) != 2 {
				return nil, fmt.Errorf("%w: expected 2 values for not between operator", ErrInvalidInput)
			}
			p.Or = &Disjunction{Field: in.Key, Lo: bounds[0], Hi: bounds[1]}
			continue
		}

		op, ok := operators[in.Operator]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperator, in.Operator)
		}
		c := FieldClause{Field: in.Key, Op: op, Value: in.Value}

		switch op {
		case OpRegex, OpNotRegex:
			re, err := compilePattern(in.Value)
			if err != nil {
				return nil, err
			}
			c.re = re
		case OpIn, OpNotIn:
			members, ok := arrayValue(in.Value)
			if !ok {
				return nil, fmt.Errorf("%w: %s operator requires an array of values", ErrInvalidInput, in.Operator)
			}
			c.Value = members
		case OpBetween:
			bounds, ok := arrayValue(in.Value)
			if !ok || len(bounds) != 2 {
				return nil, fmt.Errorf("%w: expected 2 values for between operator", ErrInvalidInput)
			}
			c.Value = bounds
		}
		p.put(c)
	}
	return p, nil
}

func compilePattern(v any) (*regexp.Regexp, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, v)
	}
	re, err := regexp.Compile("(?i)" + s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, s, err)
	}
	return re, nil
}

// arrayValue normalises any slice or array to []any.
func arrayValue(v any) ([]any, bool) {
	if a, ok := v.([]any); ok {
		return a, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// BSON renders the predicate as a MongoDB filter document.
func (p *Predicate) BSON() bson.D {
	out := bson.D{}
	if p == nil {
		return out
	}
	for _, c := range p.Clauses {
		out = append(out, bson.E{Key: c.Field, Value: c.bsonValue()})
	}
	if p.Or != nil {
		out = append(out, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: p.Or.Field, Value: bson.D{{Key: "$lt", Value: p.Or.Lo}}}},
			bson.D{{Key: p.Or.Field, Value: bson.D{{Key: "$gt", Value: p.Or.Hi}}}},
		}})
	}
	return out
}

func (c FieldClause) bsonValue() any {
	switch c.Op {
	case OpEq:
		return c.Value
	case OpNe:
		return bson.D{{Key: "$ne", Value: c.Value}}
	case OpRegex, OpNotRegex:
		return bson.Regex{Pattern: c.Pattern(), Options: "i"}
	case OpLt:
		return bson.D{{Key: "$lt", Value: c.Value}}
	case OpLte:
		return bson.D{{Key: "$lte", Value: c.Value}}
	case OpGt:
		return bson.D{{Key: "$gt", Value: c.Value}}
	case OpGte:
		return bson.D{{Key: "$gte", Value: c.Value}}
	case OpIn:
		return bson.D{{Key: "$in", Value: bson.A(c.members())}}
	case OpNotIn:
		return bson.D{{Key: "$not", Value: bson.D{{Key: "$in", Value: bson.A(c.members())}}}}
	case OpBetween:
		b := c.members()
		if len(b) != 2 {
			return c.Value
		}
		return bson.D{{Key: "$gte", Value: b[0]}, {Key: "$lte", Value: b[1]}}
	}
	return c.Value
}

func (c FieldClause) members() []any {
	a, _ := c.Value.([]any)
	return a
}

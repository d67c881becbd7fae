package firestoredb

import (
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/smarter-day/restquery"
)

// ErrUnsupportedClause is returned by Exec for predicates Firestore cannot
// evaluate, such as pattern matches.
var ErrUnsupportedClause = errors.New("firestoredb: clause not supported by firestore")

// WhereClause is a single Firestore where condition.
type WhereClause struct {
	Field    string
	Operator string
	Value    interface{}
}

// OrderClause is a single Firestore order by condition.
type OrderClause struct {
	Field     string
	Direction firestore.Direction
}

// plan is a predicate translated into Firestore terms.
type plan struct {
	where []WhereClause
	or    *firestore.OrFilter
	// empty is set when the predicate can match nothing, e.g. "in []".
	empty bool
}

var comparisons = map[restquery.Op]string{
	restquery.OpEq:  "==",
	restquery.OpNe:  "!=",
	restquery.OpLt:  "<",
	restquery.OpLte: "<=",
	restquery.OpGt:  ">",
	restquery.OpGte: ">=",
}

// translate converts p into where clauses. IDField constraints are rewritten
// to document references on coll.
func translate(coll *firestore.CollectionRef, p *restquery.Predicate) (plan, error) {
	var out plan
	if p.IsEmpty() {
		return out, nil
	}

	for _, c := range p.Clauses {
		field := c.Field
		value := func(v interface{}) interface{} { return v }
		if field == restquery.IDField {
			field = firestore.DocumentID
			value = func(v interface{}) interface{} {
				if s, ok := v.(string); ok {
					return coll.Doc(s)
				}
				return v
			}
		}

		if op, ok := comparisons[c.Op]; ok {
			out.where = append(out.where, WhereClause{Field: field, Operator: op, Value: value(c.Value)})
			continue
		}

		members, _ := c.Value.([]interface{})
		switch c.Op {
		case restquery.OpIn, restquery.OpNotIn:
			if len(members) == 0 {
				// "in []" matches nothing, "not in []" matches everything.
				out.empty = out.empty || c.Op == restquery.OpIn
				continue
			}
			mapped := make([]interface{}, len(members))
			for i, m := range members {
				mapped[i] = value(m)
			}
			op := "in"
			if c.Op == restquery.OpNotIn {
				op = "not-in"
			}
			out.where = append(out.where, WhereClause{Field: field, Operator: op, Value: mapped})
		case restquery.OpBetween:
			if len(members) != 2 {
				return out, fmt.Errorf("%w: between on %s", ErrUnsupportedClause, c.Field)
			}
			out.where = append(out.where,
				WhereClause{Field: field, Operator: ">=", Value: value(members[0])},
				WhereClause{Field: field, Operator: "<=", Value: value(members[1])},
			)
		default:
			return out, fmt.Errorf("%w: %s on %s", ErrUnsupportedClause, c.Op, c.Field)
		}
	}

	if p.Or != nil {
		out.or = &firestore.OrFilter{Filters: []firestore.EntityFilter{
			firestore.PropertyFilter{Path: p.Or.Field, Operator: "<", Value: p.Or.Lo},
			firestore.PropertyFilter{Path: p.Or.Field, Operator: ">", Value: p.Or.Hi},
		}}
	}
	return out, nil
}

// apply adds the plan's conditions to q.
func (pl plan) apply(q firestore.Query) firestore.Query {
	for _, w := range pl.where {
		q = q.Where(w.Field, w.Operator, w.Value)
	}
	if pl.or != nil {
		q = q.WhereEntity(*pl.or)
	}
	return q
}

func orderClauses(spec restquery.SortSpec) []OrderClause {
	out := make([]OrderClause, 0, len(spec))
	for _, f := range spec {
		dir := firestore.Asc
		if f.Direction < 0 {
			dir = firestore.Desc
		}
		out = append(out, OrderClause{Field: f.Field, Direction: dir})
	}
	return out
}

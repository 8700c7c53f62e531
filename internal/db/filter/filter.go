// Package filter builds store predicates as a tree and renders them into
// query documents.
package filter

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Query operators emitted by leaves.
const (
	OpEq        = "$eq"
	OpGte       = "$gte"
	OpLte       = "$lte"
	OpIn        = "$in"
	OpGeoWithin = "$geoWithin"
)

type kind uint8

const (
	kindAlways kind = iota
	kindNever
	kindLeaf
	kindAnd
	kindOr
)

// Predicate is an immutable filter tree node. The zero value matches every
// document.
type Predicate struct {
	kind  kind
	field string
	op    string
	value any
	terms []Predicate
}

// Always matches every document and renders as an empty filter.
func Always() Predicate { return Predicate{kind: kindAlways} }

// Never matches no document.
func Never() Predicate { return Predicate{kind: kindNever} }

// Eq matches documents whose field equals value.
func Eq(field string, value any) Predicate { return leaf(field, OpEq, value) }

// Gte matches documents whose field is greater than or equal to value.
func Gte(field string, value any) Predicate { return leaf(field, OpGte, value) }

// Lte matches documents whose field is less than or equal to value.
func Lte(field string, value any) Predicate { return leaf(field, OpLte, value) }

// In matches documents whose field equals any of values. An empty list
// matches nothing.
func In(field string, values ...any) Predicate {
	if len(values) == 0 {
		return Never()
	}
	arr := make(bson.A, len(values))
	copy(arr, values)
	return leaf(field, OpIn, arr)
}

// GeoWithinPolygon matches documents whose GeoJSON field lies inside the
// closed ring of [lng, lat] positions.
func GeoWithinPolygon(field string, ring [][2]float64) Predicate {
	coords := make(bson.A, len(ring))
	for i, pos := range ring {
		coords[i] = bson.A{pos[0], pos[1]}
	}
	return leaf(field, OpGeoWithin, bson.D{
		{Key: "$geometry", Value: bson.D{
			{Key: "type", Value: "Polygon"},
			{Key: "coordinates", Value: bson.A{coords}},
		}},
	})
}

func leaf(field, op string, value any) Predicate {
	return Predicate{kind: kindLeaf, field: field, op: op, value: value}
}

// And matches documents satisfying every term. Always terms are dropped,
// any Never term collapses the conjunction to Never, and nested conjunctions
// are flattened. And of no terms is Always.
func And(terms ...Predicate) Predicate {
	out := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		switch t.kind {
		case kindAlways:
			continue
		case kindNever:
			return Never()
		case kindAnd:
			out = append(out, t.terms...)
		default:
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return Always()
	case 1:
		return out[0]
	}
	return Predicate{kind: kindAnd, terms: out}
}

// Or matches documents satisfying at least one term. Never terms are
// dropped, any Always term collapses the disjunction to Always, and nested
// disjunctions are flattened. Or of no terms is Never.
func Or(terms ...Predicate) Predicate {
	out := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		switch t.kind {
		case kindNever:
			continue
		case kindAlways:
			return Always()
		case kindOr:
			out = append(out, t.terms...)
		default:
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return Never()
	case 1:
		return out[0]
	}
	return Predicate{kind: kindOr, terms: out}
}

// IsAlways reports whether p matches every document.
func (p Predicate) IsAlways() bool { return p.kind == kindAlways }

// IsNever reports whether p matches no document.
func (p Predicate) IsNever() bool { return p.kind == kindNever }

// Document renders p as a query document.
func (p Predicate) Document() bson.D {
	switch p.kind {
	case kindAlways:
		return bson.D{}
	case kindNever:
		return bson.D{{Key: "_id", Value: bson.D{{Key: OpIn, Value: bson.A{}}}}}
	case kindLeaf:
		if p.op == OpEq {
			return bson.D{{Key: p.field, Value: p.value}}
		}
		return bson.D{{Key: p.field, Value: bson.D{{Key: p.op, Value: p.value}}}}
	case kindAnd:
		if merged, ok := mergeLeaves(p.terms); ok {
			return merged
		}
		return bson.D{{Key: "$and", Value: documents(p.terms)}}
	case kindOr:
		return bson.D{{Key: "$or", Value: documents(p.terms)}}
	}
	return bson.D{}
}

// String returns the relaxed extended JSON form of the rendered document.
func (p Predicate) String() string {
	b, err := bson.MarshalExtJSON(p.Document(), false, false)
	if err != nil {
		return "<invalid filter: " + err.Error() + ">"
	}
	return string(b)
}

func documents(terms []Predicate) bson.A {
	out := make(bson.A, len(terms))
	for i, t := range terms {
		out[i] = t.Document()
	}
	return out
}

// mergeLeaves renders a conjunction of leaves as a single document, joining
// operators on the same field. It fails when a term is not a leaf, when an
// equality shares its field with another term, or when an operator repeats.
func mergeLeaves(terms []Predicate) (bson.D, bool) {
	type fieldOps struct {
		eq  bool
		ops bson.D
	}
	order := make([]string, 0, len(terms))
	byField := make(map[string]*fieldOps, len(terms))

	for _, t := range terms {
		if t.kind != kindLeaf {
			return nil, false
		}
		fo, seen := byField[t.field]
		if !seen {
			fo = &fieldOps{}
			byField[t.field] = fo
			order = append(order, t.field)
		}
		if t.op == OpEq {
			if seen {
				return nil, false
			}
			fo.eq = true
			fo.ops = bson.D{{Key: OpEq, Value: t.value}}
			continue
		}
		if fo.eq {
			return nil, false
		}
		for _, e := range fo.ops {
			if e.Key == t.op {
				return nil, false
			}
		}
		fo.ops = append(fo.ops, bson.E{Key: t.op, Value: t.value})
	}

	out := make(bson.D, 0, len(order))
	for _, f := range order {
		fo := byField[f]
		if fo.eq {
			out = append(out, bson.E{Key: f, Value: fo.ops[0].Value})
			continue
		}
		out = append(out, bson.E{Key: f, Value: fo.ops})
	}
	return out, true
}

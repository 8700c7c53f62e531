package filter

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestEq_Document(t *testing.T) {
	got := Eq("dni", 5).Document()
	want := bson.D{{Key: "dni", Value: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Document() = %v, want %v", got, want)
	}
}

func TestNever_Document(t *testing.T) {
	if got := Never().String(); got != `{"_id":{"$in":[]}}` {
		t.Errorf("String() = %s, want {\"_id\":{\"$in\":[]}}", got)
	}
}

func TestAlways_Document(t *testing.T) {
	if got := Always().Document(); len(got) != 0 {
		t.Errorf("Document() = %v, want empty", got)
	}
	var zero Predicate
	if !zero.IsAlways() {
		t.Error("zero predicate should be Always")
	}
}

func TestOr_Simplification(t *testing.T) {
	tests := []struct {
		name  string
		p     Predicate
		never bool
		alway bool
		doc   string
	}{
		{name: "empty", p: Or(), never: true},
		{name: "only never", p: Or(Never(), Never()), never: true},
		{name: "single", p: Or(Eq("a", 1)), doc: `{"a":1}`},
		{name: "never dropped", p: Or(Never(), Eq("a", 1)), doc: `{"a":1}`},
		{name: "always wins", p: Or(Eq("a", 1), Always()), alway: true},
		{name: "two", p: Or(Eq("a", 1), Eq("b", 2)), doc: `{"$or":[{"a":1},{"b":2}]}`},
		{name: "flatten", p: Or(Or(Eq("a", 1), Eq("b", 2)), Eq("c", 3)), doc: `{"$or":[{"a":1},{"b":2},{"c":3}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.IsNever() != tt.never {
				t.Errorf("IsNever() = %v, want %v", tt.p.IsNever(), tt.never)
			}
			if tt.p.IsAlways() != tt.alway {
				t.Errorf("IsAlways() = %v, want %v", tt.p.IsAlways(), tt.alway)
			}
			if tt.doc != "" && tt.p.String() != tt.doc {
				t.Errorf("String() = %s, want %s", tt.p.String(), tt.doc)
			}
		})
	}
}

func TestAnd_Simplification(t *testing.T) {
	if !And().IsAlways() {
		t.Error("And() should be Always")
	}
	if !And(Eq("a", 1), Never()).IsNever() {
		t.Error("And with Never should be Never")
	}
	if got := And(Always(), Eq("a", 1)).String(); got != `{"a":1}` {
		t.Errorf("String() = %s, want {\"a\":1}", got)
	}
}

func TestAnd_MergesRangeOnSameField(t *testing.T) {
	got := And(Eq("dni", 7), Gte("age", 18), Lte("age", 65)).String()
	want := `{"dni":7,"age":{"$gte":18,"$lte":65}}`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestAnd_ConflictFallsBackToAndOperator(t *testing.T) {
	got := And(Eq("a", 1), Eq("a", 2)).String()
	want := `{"$and":[{"a":1},{"a":2}]}`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}

	got = And(Eq("a", 1), Or(Eq("b", 1), Eq("c", 1))).String()
	want = `{"$and":[{"a":1},{"$or":[{"b":1},{"c":1}]}]}`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestIn(t *testing.T) {
	if !In("a").IsNever() {
		t.Error("In with no values should be Never")
	}
	if got := In("a", 1, 2).String(); got != `{"a":{"$in":[1,2]}}` {
		t.Errorf("String() = %s", got)
	}
}

func TestGeoWithinPolygon(t *testing.T) {
	ring := [][2]float64{{0, 0}, {0, 1.5}, {1.5, 1.5}, {0, 0}}
	got := GeoWithinPolygon("currentLocation", ring).Document()

	want := bson.D{{Key: "currentLocation", Value: bson.D{{Key: OpGeoWithin, Value: bson.D{
		{Key: "$geometry", Value: bson.D{
			{Key: "type", Value: "Polygon"},
			{Key: "coordinates", Value: bson.A{bson.A{
				bson.A{0.0, 0.0}, bson.A{0.0, 1.5}, bson.A{1.5, 1.5}, bson.A{0.0, 0.0},
			}}},
		}},
	}}}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Document() = %v, want %v", got, want)
	}
}

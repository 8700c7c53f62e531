// Package pipeline composes aggregation pipelines from typed stages.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/peopledir/internal/db/filter"
)

// ErrEmptyPipeline is returned by Build when no stage was added.
var ErrEmptyPipeline = errors.New("pipeline has no stages")

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Asc  Direction = 1
	Desc Direction = -1
)

// Accumulator is a $group output field.
type Accumulator struct {
	as   string
	expr bson.D
}

// Count accumulates the number of grouped documents into as.
func Count(as string) Accumulator {
	return Accumulator{as: as, expr: bson.D{{Key: "$sum", Value: 1}}}
}

// Projection is a single $project entry.
type Projection struct {
	field string
	value any
}

// Include keeps field in the output.
func Include(field string) Projection { return Projection{field: field, value: 1} }

// Exclude drops field from the output.
func Exclude(field string) Projection { return Projection{field: field, value: 0} }

// Rename emits field with the value of the source path.
func Rename(field, source string) Projection {
	return Projection{field: field, value: "$" + strings.TrimPrefix(source, "$")}
}

// Literal emits field with a constant value.
func Literal(field string, value any) Projection {
	return Projection{field: field, value: bson.D{{Key: "$literal", Value: value}}}
}

// Builder is a fluent builder for aggregation pipelines. Errors are
// collected and reported by Build.
type Builder struct {
	stages mongo.Pipeline
	errs   []error
}

// New starts an empty pipeline.
func New() *Builder {
	return &Builder{}
}

// Match filters documents with p.
func (b *Builder) Match(p filter.Predicate) *Builder {
	b.stages = append(b.stages, bson.D{{Key: "$match", Value: p.Document()}})
	return b
}

// Group groups documents by the value of the key path.
func (b *Builder) Group(key string, accs ...Accumulator) *Builder {
	if key == "" {
		b.errs = append(b.errs, errors.New("$group: key is required"))
		return b
	}
	doc := bson.D{{Key: "_id", Value: "$" + strings.TrimPrefix(key, "$")}}
	for _, a := range accs {
		if a.as == "" || a.as == "_id" {
			b.errs = append(b.errs, fmt.Errorf("$group: invalid output field %q", a.as))
			continue
		}
		doc = append(doc, bson.E{Key: a.as, Value: a.expr})
	}
	b.stages = append(b.stages, bson.D{{Key: "$group", Value: doc}})
	return b
}

// Project reshapes documents.
func (b *Builder) Project(fields ...Projection) *Builder {
	if len(fields) == 0 {
		b.errs = append(b.errs, errors.New("$project: at least one field is required"))
		return b
	}
	doc := make(bson.D, 0, len(fields))
	for _, f := range fields {
		if f.field == "" {
			b.errs = append(b.errs, errors.New("$project: field name is required"))
			continue
		}
		doc = append(doc, bson.E{Key: f.field, Value: f.value})
	}
	b.stages = append(b.stages, bson.D{{Key: "$project", Value: doc}})
	return b
}

// Sort orders documents by field.
func (b *Builder) Sort(field string, dir Direction) *Builder {
	if field == "" {
		b.errs = append(b.errs, errors.New("$sort: field is required"))
		return b
	}
	if dir != Asc && dir != Desc {
		b.errs = append(b.errs, fmt.Errorf("$sort: invalid direction %d", dir))
		return b
	}
	b.stages = append(b.stages, bson.D{{Key: "$sort", Value: bson.D{{Key: field, Value: int32(dir)}}}})
	return b
}

// Lookup joins documents from another collection into the as field.
func (b *Builder) Lookup(from, localField, foreignField, as string) *Builder {
	if from == "" || localField == "" || foreignField == "" || as == "" {
		b.errs = append(b.errs, errors.New("$lookup: from, localField, foreignField and as are required"))
		return b
	}
	b.stages = append(b.stages, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: foreignField},
		{Key: "as", Value: as},
	}}})
	return b
}

// Unwind emits one document per element of the array at path. Documents
// with a missing or empty array are dropped.
func (b *Builder) Unwind(path string) *Builder {
	if path == "" {
		b.errs = append(b.errs, errors.New("$unwind: path is required"))
		return b
	}
	b.stages = append(b.stages, bson.D{{Key: "$unwind", Value: "$" + strings.TrimPrefix(path, "$")}})
	return b
}

// Build validates and returns the pipeline.
func (b *Builder) Build() (mongo.Pipeline, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.stages) == 0 {
		return nil, ErrEmptyPipeline
	}
	out := make(mongo.Pipeline, len(b.stages))
	copy(out, b.stages)
	return out, nil
}

// String returns the pipeline as a relaxed extended JSON array for logs.
func (b *Builder) String() string {
	parts := make([]string, 0, len(b.stages))
	for _, s := range b.stages {
		raw, err := bson.MarshalExtJSON(s, false, false)
		if err != nil {
			parts = append(parts, "<invalid stage: "+err.Error()+">")
			continue
		}
		parts = append(parts, string(raw))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

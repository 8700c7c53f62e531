// Package update composes partial-update documents with array filters.
package update

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/peopledir/internal/db/filter"
)

// ErrEmptyUpdate is returned by Build when no operator was added.
var ErrEmptyUpdate = errors.New("update has no operators")

var (
	identRe      = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)
	positionalRe = regexp.MustCompile(`\$\[([^\]]*)\]`)
)

// AllPositional returns the path of field inside every element of array.
func AllPositional(array, field string) string {
	return array + ".$[]." + field
}

// FilteredPositional returns the path of field inside the elements of array
// selected by the array filter named ident.
func FilteredPositional(array, ident, field string) string {
	return array + ".$[" + ident + "]." + field
}

// Update is a validated update document with its array filters.
type Update struct {
	doc          bson.D
	arrayFilters []any
}

// Document returns the update operators document.
func (u Update) Document() bson.D { return u.doc }

// ArrayFilters returns the array filter documents, nil when none are used.
func (u Update) ArrayFilters() []any { return u.arrayFilters }

// String returns the update as relaxed extended JSON for logs.
func (u Update) String() string {
	raw, err := bson.MarshalExtJSON(u.doc, false, false)
	if err != nil {
		return "<invalid update: " + err.Error() + ">"
	}
	if len(u.arrayFilters) == 0 {
		return string(raw)
	}
	af, err := bson.MarshalExtJSON(bson.D{{Key: "arrayFilters", Value: bson.A(u.arrayFilters)}}, false, false)
	if err != nil {
		return string(raw)
	}
	return string(raw) + " " + string(af)
}

type arrayFilter struct {
	ident string
	doc   bson.D
}

// Builder is a fluent builder for update documents. Errors are collected and
// reported by Build.
type Builder struct {
	set     bson.D
	push    bson.D
	pullAll bson.D
	filters []arrayFilter
	paths   map[string]bool
	errs    []error
}

// New starts an empty update.
func New() *Builder {
	return &Builder{paths: make(map[string]bool)}
}

// Set assigns value to path.
func (b *Builder) Set(path string, value any) *Builder {
	if b.claim("$set", path) {
		b.set = append(b.set, bson.E{Key: path, Value: value})
	}
	return b
}

// PushEach appends values to the array at path, in order.
func (b *Builder) PushEach(path string, values ...any) *Builder {
	if b.claim("$push", path) {
		b.push = append(b.push, bson.E{Key: path, Value: bson.D{{Key: "$each", Value: toArray(values)}}})
	}
	return b
}

// PullAll removes every element of the array at path equal to any of values.
func (b *Builder) PullAll(path string, values ...any) *Builder {
	if b.claim("$pullAll", path) {
		b.pullAll = append(b.pullAll, bson.E{Key: path, Value: toArray(values)})
	}
	return b
}

// FilterArray registers an array filter named ident. The predicate fields
// must be addressed through the identifier, e.g. "hb.frequency".
func (b *Builder) FilterArray(ident string, p filter.Predicate) *Builder {
	if !identRe.MatchString(ident) {
		b.errs = append(b.errs, fmt.Errorf("array filter identifier %q must start with a lowercase letter and be alphanumeric", ident))
		return b
	}
	for _, f := range b.filters {
		if f.ident == ident {
			b.errs = append(b.errs, fmt.Errorf("array filter %q registered twice", ident))
			return b
		}
	}
	doc := p.Document()
	if len(doc) == 0 {
		b.errs = append(b.errs, fmt.Errorf("array filter %q is empty", ident))
		return b
	}
	for _, e := range doc {
		if e.Key != ident && !strings.HasPrefix(e.Key, ident+".") {
			b.errs = append(b.errs, fmt.Errorf("array filter %q addresses field %q outside the identifier", ident, e.Key))
			return b
		}
	}
	b.filters = append(b.filters, arrayFilter{ident: ident, doc: doc})
	return b
}

func (b *Builder) claim(op, path string) bool {
	if path == "" {
		b.errs = append(b.errs, fmt.Errorf("%s: path is required", op))
		return false
	}
	if b.paths[path] {
		b.errs = append(b.errs, fmt.Errorf("%s: path %q already updated", op, path))
		return false
	}
	b.paths[path] = true
	return true
}

// Build validates and returns the update. Every filtered positional
// operator must have a matching array filter and every filter must be used.
func (b *Builder) Build() (Update, error) {
	errs := append([]error(nil), b.errs...)

	used := make(map[string]bool)
	for path := range b.paths {
		for _, m := range positionalRe.FindAllStringSubmatch(path, -1) {
			if m[1] != "" {
				used[m[1]] = true
			}
		}
	}
	registered := make(map[string]bool, len(b.filters))
	for _, f := range b.filters {
		registered[f.ident] = true
		if !used[f.ident] {
			errs = append(errs, fmt.Errorf("array filter %q is not used by any path", f.ident))
		}
	}
	for ident := range used {
		if !registered[ident] {
			errs = append(errs, fmt.Errorf("no array filter for identifier %q", ident))
		}
	}
	if len(errs) > 0 {
		return Update{}, errors.Join(errs...)
	}

	var doc bson.D
	if len(b.set) > 0 {
		doc = append(doc, bson.E{Key: "$set", Value: b.set})
	}
	if len(b.push) > 0 {
		doc = append(doc, bson.E{Key: "$push", Value: b.push})
	}
	if len(b.pullAll) > 0 {
		doc = append(doc, bson.E{Key: "$pullAll", Value: b.pullAll})
	}
	if len(doc) == 0 {
		return Update{}, ErrEmptyUpdate
	}

	var af []any
	for _, f := range b.filters {
		af = append(af, f.doc)
	}
	return Update{doc: doc, arrayFilters: af}, nil
}

func toArray(values []any) bson.A {
	out := make(bson.A, len(values))
	copy(out, values)
	return out
}

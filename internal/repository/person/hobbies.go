package person

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/peopledir/internal/db"
	"github.com/kailas-cloud/peopledir/internal/db/filter"
	"github.com/kailas-cloud/peopledir/internal/db/update"
	"github.com/kailas-cloud/peopledir/internal/domain"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

// SetHobbies replaces the hobbies of the person identified by p.
func (r *Repo) SetHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	u := update.New().Set(fieldHobbies, hobbyDocs(p.Hobbies))
	return r.updateFirst(ctx, "set hobbies", p.Ref(), u)
}

// PushHobbies appends the hobbies of p, in order, keeping duplicates.
func (r *Repo) PushHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	u := update.New().PushEach(fieldHobbies, hobbyDocs(p.Hobbies)...)
	return r.updateFirst(ctx, "push hobbies", p.Ref(), u)
}

// PullHobbies removes every stored hobby equal to any hobby of p.
func (r *Repo) PullHobbies(ctx context.Context, p domperson.Person) (domperson.UpdateResult, error) {
	u := update.New().PullAll(fieldHobbies, hobbyDocs(p.Hobbies)...)
	return r.updateFirst(ctx, "pull hobbies", p.Ref(), u)
}

// AddFieldsToAllHobbies sets every patch field on every hobby of every
// matching person.
func (r *Repo) AddFieldsToAllHobbies(ctx context.Context, patch domperson.HobbyFieldsPatch) (domperson.UpdateResult, error) {
	b := update.New()
	for _, f := range patch.Fields() {
		b.Set(update.AllPositional(fieldHobbies, f.Name), f.Value.Interface())
	}
	u, err := b.Build()
	if err != nil {
		return domperson.UpdateResult{}, fmt.Errorf("build add hobby fields: %w", err)
	}
	res, err := r.store.UpdateMulti(ctx, r.colls.Persons, byAlternateKeys(patch.Ref()).Document(), u)
	if err != nil {
		return domperson.UpdateResult{}, translateWriteErr("add hobby fields", err)
	}
	return domperson.UpdateResult{Matched: res.Matched, Modified: res.Modified}, nil
}

// MarkGoodFrequencyHobbies flags hobbies whose frequency is at least
// minFrequency (DefaultMinFrequency when nil). Re-running it changes nothing.
func (r *Repo) MarkGoodFrequencyHobbies(ctx context.Context, p domperson.Person, minFrequency *int) (domperson.UpdateResult, error) {
	minFreq := domperson.DefaultMinFrequency
	if minFrequency != nil {
		minFreq = *minFrequency
	}
	u := update.New().
		Set(update.FilteredPositional(fieldHobbies, hobbyIdent, fieldGoodFrequency), true).
		FilterArray(hobbyIdent, filter.Gte(hobbyIdent+"."+fieldHobbyFrequency, minFreq))
	return r.updateFirst(ctx, "mark good frequency hobbies", p.Ref(), u)
}

func (r *Repo) updateFirst(ctx context.Context, what string, ref domperson.Ref, b *update.Builder) (domperson.UpdateResult, error) {
	u, err := b.Build()
	if err != nil {
		return domperson.UpdateResult{}, fmt.Errorf("build %s: %w", what, err)
	}
	res, err := r.store.UpdateFirst(ctx, r.colls.Persons, byAlternateKeys(ref).Document(), u)
	if err != nil {
		return domperson.UpdateResult{}, translateWriteErr(what, err)
	}
	return domperson.UpdateResult{Matched: res.Matched, Modified: res.Modified}, nil
}

func translateWriteErr(what string, err error) error {
	if errors.Is(err, db.ErrDuplicateKey) {
		return fmt.Errorf("%s: %w: %w", what, domain.ErrDuplicateDNI, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

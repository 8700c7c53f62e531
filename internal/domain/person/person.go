package person

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/peopledir/internal/domain"
	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	"github.com/kailas-cloud/peopledir/internal/domain/hobby"
)

// DefaultMinFrequency is the hobby frequency threshold used when the caller
// does not supply one.
const DefaultMinFrequency = 2

// Country is a document of the countries collection.
type Country struct {
	ID   string
	Name string
	Code string
}

// Person is a record of the persons collection.
//
// Age is only set on projections that echo it back. Total is only set on
// grouped results and is never written.
type Person struct {
	ID              string
	DNI             int64
	FirstName       string
	LastName        string
	Email           string
	Gender          string
	IPAddress       string
	Mobile          int64
	DateOfBirth     time.Time
	Age             *int
	Color           string
	Frequency       string
	MAC             string
	Company         string
	Language        string
	ShirtSize       string
	University      string
	Country         *Country
	CurrentLocation *geo.Point
	Hobbies         []hobby.Hobby
	Total           *int64
}

// Ref returns the alternate keys identifying p.
func (p Person) Ref() Ref { return Ref{DNI: p.DNI, ID: p.ID} }

// Ref identifies a person by natural key (dni) or store identity (id).
type Ref struct {
	DNI int64
	ID  string
}

// Validate checks that at least one key is present.
func (r Ref) Validate() error {
	if r.DNI <= 0 && r.ID == "" {
		return fmt.Errorf("dni or id is required: %w", domain.ErrInvalidArgument)
	}
	return nil
}

// HobbyFieldsPatch sets the same named values on every hobby of a person.
type HobbyFieldsPatch struct {
	ref    Ref
	fields []hobby.Field
}

// NewHobbyFieldsPatch validates and creates a HobbyFieldsPatch.
func NewHobbyFieldsPatch(ref Ref, fields []hobby.Field) (HobbyFieldsPatch, error) {
	if err := ref.Validate(); err != nil {
		return HobbyFieldsPatch{}, err
	}
	if len(fields) == 0 {
		return HobbyFieldsPatch{}, fmt.Errorf("at least one hobby field is required: %w", domain.ErrInvalidArgument)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := hobby.ValidateFieldName(f.Name); err != nil {
			return HobbyFieldsPatch{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
		}
		if seen[f.Name] {
			return HobbyFieldsPatch{}, fmt.Errorf("duplicate hobby field %q: %w", f.Name, domain.ErrInvalidArgument)
		}
		seen[f.Name] = true
	}
	out := make([]hobby.Field, len(fields))
	copy(out, fields)
	return HobbyFieldsPatch{ref: ref, fields: out}, nil
}

// Ref returns the target person keys.
func (p HobbyFieldsPatch) Ref() Ref { return p.ref }

// Fields returns the fields to set, in order.
func (p HobbyFieldsPatch) Fields() []hobby.Field {
	out := make([]hobby.Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// UpdateResult reports the outcome of a partial update.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

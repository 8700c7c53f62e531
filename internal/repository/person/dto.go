package person

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	"github.com/kailas-cloud/peopledir/internal/domain/hobby"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

// personDoc is the stored shape of a person.
type personDoc struct {
	ID              any         `bson:"_id,omitempty"`
	DNI             int64       `bson:"dni"`
	FirstName       string      `bson:"firstName,omitempty"`
	LastName        string      `bson:"lastName,omitempty"`
	Email           string      `bson:"email,omitempty"`
	Gender          string      `bson:"gender,omitempty"`
	IPAddress       string      `bson:"ipAddress,omitempty"`
	Mobile          int64       `bson:"mobile,omitempty"`
	DateOfBirth     time.Time   `bson:"dateOfBirth,omitempty"`
	Age             *int64      `bson:"age,omitempty"`
	Color           string      `bson:"color,omitempty"`
	Frequency       string      `bson:"frequency,omitempty"`
	MAC             string      `bson:"mac,omitempty"`
	Company         string      `bson:"company,omitempty"`
	Language        string      `bson:"language,omitempty"`
	ShirtSize       string      `bson:"shirtSize,omitempty"`
	University      string      `bson:"university,omitempty"`
	Country         *countryDoc `bson:"country,omitempty"`
	CurrentLocation *pointDoc   `bson:"currentLocation,omitempty"`
	Hobbies         []bson.D    `bson:"hobbies,omitempty"`
	Total           *int64      `bson:"total,omitempty"`
}

type countryDoc struct {
	ID   any    `bson:"_id,omitempty"`
	Name string `bson:"name,omitempty"`
	Code string `bson:"code,omitempty"`
}

type pointDoc struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// decodePerson unmarshals a stored document into a domain Person.
func decodePerson(raw bson.Raw) (domperson.Person, error) {
	var d personDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		return domperson.Person{}, fmt.Errorf("decode person: %w", err)
	}
	return d.toDomain()
}

func decodePersons(raws []bson.Raw) ([]domperson.Person, error) {
	out := make([]domperson.Person, 0, len(raws))
	for i, raw := range raws {
		p, err := decodePerson(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *personDoc) toDomain() (domperson.Person, error) {
	p := domperson.Person{
		ID:          idString(d.ID),
		DNI:         d.DNI,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Email:       d.Email,
		Gender:      d.Gender,
		IPAddress:   d.IPAddress,
		Mobile:      d.Mobile,
		DateOfBirth: d.DateOfBirth,
		Color:       d.Color,
		Frequency:   d.Frequency,
		MAC:         d.MAC,
		Company:     d.Company,
		Language:    d.Language,
		ShirtSize:   d.ShirtSize,
		University:  d.University,
		Total:       d.Total,
	}
	if d.Age != nil {
		age := int(*d.Age)
		p.Age = &age
	}
	if d.Country != nil {
		p.Country = &domperson.Country{ID: idString(d.Country.ID), Name: d.Country.Name, Code: d.Country.Code}
	}
	if d.CurrentLocation != nil && len(d.CurrentLocation.Coordinates) >= 2 {
		p.CurrentLocation = &geo.Point{Lng: d.CurrentLocation.Coordinates[0], Lat: d.CurrentLocation.Coordinates[1]}
	}
	if len(d.Hobbies) > 0 {
		p.Hobbies = make([]hobby.Hobby, 0, len(d.Hobbies))
		for _, hd := range d.Hobbies {
			p.Hobbies = append(p.Hobbies, hobbyFromDoc(hd))
		}
	}
	return p, nil
}

// hobbyFromDoc keeps the scalar fields of a stored hobby. Fields holding
// sub-documents, arrays or other non-scalar BSON values are skipped so one
// foreign element cannot fail the decode of the whole result.
func hobbyFromDoc(d bson.D) hobby.Hobby {
	fields := make([]hobby.Field, 0, len(d))
	for _, e := range d {
		v, err := hobby.FromAny(e.Value)
		if err != nil {
			continue
		}
		fields = append(fields, hobby.Field{Name: e.Key, Value: v})
	}
	return hobby.New(fields...)
}

// hobbyDoc renders a hobby as an ordered sub-document. Field order matters
// for $pullAll, which compares embedded documents field by field.
func hobbyDoc(h hobby.Hobby) bson.D {
	fields := h.Fields()
	out := make(bson.D, len(fields))
	for i, f := range fields {
		out[i] = bson.E{Key: f.Name, Value: f.Value.Interface()}
	}
	return out
}

func hobbyDocs(hs []hobby.Hobby) []any {
	out := make([]any, len(hs))
	for i, h := range hs {
		out[i] = hobbyDoc(h)
	}
	return out
}

// idString renders a stored identifier as a string.
func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// storeID converts a caller identifier into its stored form: hex strings
// are object ids, anything else is kept as a string key.
func storeID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

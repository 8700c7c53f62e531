package chi

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/peopledir/internal/domain"
	dombatch "github.com/kailas-cloud/peopledir/internal/domain/batch"
	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	"github.com/kailas-cloud/peopledir/internal/domain/hobby"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

// Accepted date layouts for query parameters.
const (
	dateLayout    = "2006-01-02"
	dayFirstDates = "02/01/2006"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type countryJSON struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

type pointJSON struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type personJSON struct {
	ID              string        `json:"id,omitempty"`
	DNI             int64         `json:"dni,omitempty"`
	FirstName       string        `json:"firstName,omitempty"`
	LastName        string        `json:"lastName,omitempty"`
	Email           string        `json:"email,omitempty"`
	Gender          string        `json:"gender,omitempty"`
	IPAddress       string        `json:"ipAddress,omitempty"`
	Mobile          int64         `json:"mobile,omitempty"`
	DateOfBirth     string        `json:"dateOfBirth,omitempty"`
	Age             *int          `json:"age,omitempty"`
	Color           string        `json:"color,omitempty"`
	Frequency       string        `json:"frequency,omitempty"`
	MAC             string        `json:"mac,omitempty"`
	Company         string        `json:"company,omitempty"`
	Language        string        `json:"language,omitempty"`
	ShirtSize       string        `json:"shirtSize,omitempty"`
	University      string        `json:"university,omitempty"`
	Country         *countryJSON  `json:"country,omitempty"`
	CurrentLocation *pointJSON    `json:"currentLocation,omitempty"`
	Hobbies         []hobby.Hobby `json:"hobbies,omitempty"`
	Total           *int64        `json:"total,omitempty"`
}

type personListResponse struct {
	Items []personJSON `json:"items"`
	Total int          `json:"total"`
}

type countResponse struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

type updateResponse struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

type hobbyFieldsRequest struct {
	ID     string      `json:"id"`
	DNI    int64       `json:"dni"`
	Fields hobby.Hobby `json:"fields"`
}

type goodFrequencyRequest struct {
	ID           string `json:"id"`
	DNI          int64  `json:"dni"`
	MinFrequency *int   `json:"minFrequency"`
}

type batchDeleteRequest struct {
	Persons []personJSON `json:"persons"`
}

type batchPurgeRequest struct {
	DNIs []int64 `json:"dnis"`
}

type batchPurgeResponse struct {
	Requested int   `json:"requested"`
	Deleted   int64 `json:"deleted"`
}

type batchResultItem struct {
	DNI    int64          `json:"dni"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type batchDeleteResponse struct {
	Deleted []personJSON      `json:"deleted"`
	Items   []batchResultItem `json:"items"`
	Missing int               `json:"missing"`
	Failed  int               `json:"failed"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// parseDate accepts ISO dates and day-first dates (dd/MM/yyyy).
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, dayFirstDates} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q must be yyyy-MM-dd or dd/MM/yyyy: %w", s, domain.ErrInvalidArgument)
}

func personToJSON(p domperson.Person) personJSON {
	out := personJSON{
		ID:         p.ID,
		DNI:        p.DNI,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Gender:     p.Gender,
		IPAddress:  p.IPAddress,
		Mobile:     p.Mobile,
		Age:        p.Age,
		Color:      p.Color,
		Frequency:  p.Frequency,
		MAC:        p.MAC,
		Company:    p.Company,
		Language:   p.Language,
		ShirtSize:  p.ShirtSize,
		University: p.University,
		Hobbies:    p.Hobbies,
		Total:      p.Total,
	}
	if !p.DateOfBirth.IsZero() {
		out.DateOfBirth = p.DateOfBirth.UTC().Format(dateLayout)
	}
	if p.Country != nil {
		out.Country = &countryJSON{ID: p.Country.ID, Name: p.Country.Name, Code: p.Country.Code}
	}
	if p.CurrentLocation != nil {
		out.CurrentLocation = &pointJSON{Type: "Point", Coordinates: p.CurrentLocation.Position()}
	}
	return out
}

func personsToJSON(ps []domperson.Person) []personJSON {
	out := make([]personJSON, len(ps))
	for i, p := range ps {
		out[i] = personToJSON(p)
	}
	return out
}

func personFromJSON(in personJSON) (domperson.Person, error) {
	p := domperson.Person{
		ID:         in.ID,
		DNI:        in.DNI,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Gender:     in.Gender,
		IPAddress:  in.IPAddress,
		Mobile:     in.Mobile,
		Color:      in.Color,
		Frequency:  in.Frequency,
		MAC:        in.MAC,
		Company:    in.Company,
		Language:   in.Language,
		ShirtSize:  in.ShirtSize,
		University: in.University,
		Hobbies:    in.Hobbies,
	}
	if in.DateOfBirth != "" {
		dob, err := parseDate(in.DateOfBirth)
		if err != nil {
			return domperson.Person{}, err
		}
		p.DateOfBirth = dob
	}
	if in.Country != nil {
		p.Country = &domperson.Country{ID: in.Country.ID, Name: in.Country.Name, Code: in.Country.Code}
	}
	if in.CurrentLocation != nil {
		pt, err := geo.NewPoint(in.CurrentLocation.Coordinates[0], in.CurrentLocation.Coordinates[1])
		if err != nil {
			return domperson.Person{}, fmt.Errorf("currentLocation: %w", err)
		}
		p.CurrentLocation = &pt
	}
	return p, nil
}

func batchResultToJSON(r dombatch.Result) batchResultItem {
	item := batchResultItem{DNI: r.DNI(), Status: string(r.Status())}
	if r.Err() != nil {
		item.Error = &errorResponse{Code: errorCode(r.Err()), Message: safeDomainMessage(r.Err())}
	}
	return item
}

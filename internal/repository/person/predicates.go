package person

import (
	"time"

	"github.com/kailas-cloud/peopledir/internal/db/filter"
	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

// Stored field paths.
const (
	fieldID              = "_id"
	fieldDNI             = "dni"
	fieldFirstName       = "firstName"
	fieldLastName        = "lastName"
	fieldDateOfBirth     = "dateOfBirth"
	fieldAge             = "age"
	fieldCountry         = "country"
	fieldCountryID       = "country._id"
	fieldCountryName     = "country.name"
	fieldCurrentLocation = "currentLocation"
	fieldHobbies         = "hobbies"
	fieldHobbyFrequency  = "frequency"
	fieldGoodFrequency   = "goodFrequency"
)

// hobbyIdent names the array filter over hobbies elements.
const hobbyIdent = "hb"

// dateOnly truncates t to midnight UTC of its calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// yearsBefore subtracts calendar years from a date. A day that does not
// exist in the target month (Feb 29) clamps to the last day of that month.
func yearsBefore(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	y -= years
	if last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day(); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// bornBetween matches dates of birth in [start, end]. An inverted range
// matches nothing.
func bornBetween(start, end time.Time) filter.Predicate {
	start, end = dateOnly(start), dateOnly(end)
	if start.After(end) {
		return filter.Never()
	}
	return filter.And(
		filter.Gte(fieldDateOfBirth, start),
		filter.Lte(fieldDateOfBirth, end),
	)
}

func dniEquals(dni int64) filter.Predicate {
	return filter.Eq(fieldDNI, dni)
}

// dniIn matches persons whose dni is any of dnis.
func dniIn(dnis []int64) filter.Predicate {
	values := make([]any, len(dnis))
	for i, d := range dnis {
		values[i] = d
	}
	return filter.In(fieldDNI, values...)
}

// olderThan matches the person with dni born on or before the date that is
// minimumAge calendar years before now. A cutoff before year 1 matches
// nothing.
func olderThan(dni int64, minimumAge int, now time.Time) filter.Predicate {
	today := dateOnly(now)
	if minimumAge >= today.Year() {
		return filter.Never()
	}
	cutoff := yearsBefore(today, minimumAge)
	return filter.And(
		dniEquals(dni),
		filter.Lte(fieldDateOfBirth, cutoff),
	)
}

// withinAnyPolygon ORs one containment predicate per polygon, in input order.
func withinAnyPolygon(mp geo.MultiPolygon) filter.Predicate {
	terms := make([]filter.Predicate, len(mp))
	for i, poly := range mp {
		terms[i] = filter.GeoWithinPolygon(fieldCurrentLocation, poly.Positions())
	}
	return filter.Or(terms...)
}

// byAlternateKeys matches on dni or store identity. Absent keys are left
// out so a zero dni never matches persons without one.
func byAlternateKeys(ref domperson.Ref) filter.Predicate {
	var terms []filter.Predicate
	if ref.DNI != 0 {
		terms = append(terms, dniEquals(ref.DNI))
	}
	if ref.ID != "" {
		terms = append(terms, filter.Eq(fieldID, storeID(ref.ID)))
	}
	return filter.Or(terms...)
}

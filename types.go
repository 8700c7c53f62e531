package peopledir

import (
	dombatch "github.com/kailas-cloud/peopledir/internal/domain/batch"
	"github.com/kailas-cloud/peopledir/internal/domain/geo"
	"github.com/kailas-cloud/peopledir/internal/domain/hobby"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
	batchuc "github.com/kailas-cloud/peopledir/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/peopledir/internal/usecase/health"
)

// Person directory types.
type (
	Person           = domperson.Person
	Country          = domperson.Country
	Ref              = domperson.Ref
	UpdateResult     = domperson.UpdateResult
	HobbyFieldsPatch = domperson.HobbyFieldsPatch
)

// Hobby types.
type (
	Hobby      = hobby.Hobby
	HobbyField = hobby.Field
	HobbyValue = hobby.Value
)

// Geometry types.
type (
	Point        = geo.Point
	Polygon      = geo.Polygon
	MultiPolygon = geo.MultiPolygon
)

// Batch and health reports.
type (
	DeleteReport = batchuc.Report
	BatchResult  = dombatch.Result
	BatchStatus  = dombatch.ItemStatus
	HealthReport = healthuc.Report
)

// Batch item statuses.
const (
	StatusDeleted = dombatch.StatusDeleted
	StatusMissing = dombatch.StatusMissing
	StatusError   = dombatch.StatusError
)

// DefaultMinFrequency is the hobby frequency threshold used by
// MarkGoodFrequencyHobbies when none is given.
const DefaultMinFrequency = domperson.DefaultMinFrequency

// Constructors.
var (
	NewHobby            = hobby.New
	NewPoint            = geo.NewPoint
	NewPolygon          = geo.NewPolygon
	NewHobbyFieldsPatch = domperson.NewHobbyFieldsPatch

	StringValue = hobby.String
	NumberValue = hobby.Number
	BoolValue   = hobby.Bool
	NullValue   = hobby.Null
)

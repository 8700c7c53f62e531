package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusDeleted ItemStatus = "deleted"
	StatusMissing ItemStatus = "missing"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of processing one person in a batch mutation.
type Result struct {
	dni    int64
	status ItemStatus
	err    error
}

// NewDeleted records a person that was removed.
func NewDeleted(dni int64) Result { return Result{dni: dni, status: StatusDeleted} }

// NewMissing records a person for which nothing was removed.
func NewMissing(dni int64, err error) Result {
	return Result{dni: dni, status: StatusMissing, err: err}
}

// NewError records a person whose mutation failed.
func NewError(dni int64, err error) Result { return Result{dni: dni, status: StatusError, err: err} }

// DNI returns the person's natural key.
func (r Result) DNI() int64 { return r.dni }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// OK reports whether the item was applied.
func (r Result) OK() bool { return r.status == StatusDeleted }

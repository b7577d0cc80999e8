// Package batch reports per-item outcomes of bulk curation runs.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one scheme in a batch.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the scheme identifier ("" when the record had none).
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Report collects results in input order.
type Report struct {
	results []Result
}

// Add appends results.
func (r *Report) Add(res ...Result) { r.results = append(r.results, res...) }

// Fail records the same error for every id.
func (r *Report) Fail(ids []string, err error) {
	for _, id := range ids {
		r.results = append(r.results, NewError(id, err))
	}
}

// Results returns all outcomes.
func (r *Report) Results() []Result { return r.results }

// Succeeded counts successful items.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.results {
		if res.status == StatusOK {
			n++
		}
	}
	return n
}

// Failed returns the failed items.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.results {
		if res.status == StatusError {
			out = append(out, res)
		}
	}
	return out
}

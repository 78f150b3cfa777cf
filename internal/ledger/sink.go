package ledger

import (
	"github.com/iho/txengine/internal/domain"
)

// RejectionSink observes discarded records. tx is nil when the record could
// not be parsed at all.
type RejectionSink interface {
	Reject(tx domain.Transaction, err error)
}

// RejectionSinkFunc adapts a function to RejectionSink.
type RejectionSinkFunc func(tx domain.Transaction, err error)

// Reject calls f(tx, err).
func (f RejectionSinkFunc) Reject(tx domain.Transaction, err error) {
	f(tx, err)
}

// MultiSink fans a rejection out to several sinks. Nil sinks are skipped.
type MultiSink []RejectionSink

// Reject forwards to every sink.
func (m MultiSink) Reject(tx domain.Transaction, err error) {
	for _, s := range m {
		if s != nil {
			s.Reject(tx, err)
		}
	}
}

// Rejection is one recorded discard.
type Rejection struct {
	Transaction domain.Transaction
	Err         error
}

// Recorder keeps every rejection in arrival order.
type Recorder struct {
	rejections []Rejection
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Reject records the rejection.
func (r *Recorder) Reject(tx domain.Transaction, err error) {
	r.rejections = append(r.rejections, Rejection{Transaction: tx, Err: err})
}

// Rejections returns the recorded rejections.
func (r *Recorder) Rejections() []Rejection {
	return r.rejections
}

// Len returns the number of recorded rejections.
func (r *Recorder) Len() int {
	return len(r.rejections)
}

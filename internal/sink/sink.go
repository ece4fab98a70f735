package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/k8crawler/internal/model"
)

// Sink is a durable, idempotent record writer.
type Sink interface {
	// Write stores rec. Writing an already stored fingerprint is a no-op
	// or an overwrite with identical content.
	Write(ctx context.Context, rec *model.CandidateRecord) error

	// Ping reports whether the sink can accept writes.
	Ping(ctx context.Context) error

	// Close releases the sink.
	Close() error
}

// DeadLetterQueue keeps records that could not be written.
type DeadLetterQueue interface {
	DeadLetter(ctx context.Context, dl *model.DeadLetter) error
	Close() error
}

// ErrClosed is returned by writes to a closed sink.
var ErrClosed = errors.New("sink is closed")

// Error reports a failed write.
type Error struct {
	// Sink names the failing sink.
	Sink string
	// Fingerprint identifies the record.
	Fingerprint model.Fingerprint
	// Err is the cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s sink: write %s: %v", e.Sink, e.Fingerprint.Short(), e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(name string, rec *model.CandidateRecord, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Sink: name, Fingerprint: rec.Fingerprint, Err: err}
}

// Multi writes every record to all of its sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks. Writes go to them in order.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Write writes rec to every sink, stopping at the first failure. Sinks are
// idempotent, so a retry rewrites the ones that already succeeded.
func (m *Multi) Write(ctx context.Context, rec *model.CandidateRecord) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Ping pings every sink.
func (m *Multi) Ping(ctx context.Context) error {
	for _, s := range m.sinks {
		if err := s.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package services

import (
	"go.uber.org/multierr"
)

// Outcome describes one processed file.
type Outcome struct {
	// Source is the file that was read.
	Source string
	// Output is the file that was written.
	Output string
	// ID is the record identifier.
	ID string
	// Reused is set when encryption reused an existing record.
	Reused bool
}

// Failure pairs a path with the error that stopped it.
type Failure struct {
	Path string
	Err  error
}

// BatchReport lists everything a directory run did.
type BatchReport struct {
	Succeeded []*Outcome
	Failed    []Failure
	// Skipped holds files the operation does not apply to, such as
	// artifacts met while encrypting.
	Skipped []string
}

func (r *BatchReport) ok(o *Outcome) {
	r.Succeeded = append(r.Succeeded, o)
}

func (r *BatchReport) fail(path string, err error) {
	r.Failed = append(r.Failed, Failure{Path: path, Err: err})
}

// Err combines every failure; nil means all items succeeded.
func (r *BatchReport) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f.Err)
	}
	return err
}

package main

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrLabelNotFound   = errors.New("label not found")
	ErrArrayConversion = errors.New("array conversion failed")
	ErrVocabularyLoad  = errors.New("vocabulary load failed")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrNonFiniteLoss   = errors.New("non-finite training loss")
	ErrInvalidConfig   = errors.New("invalid config")
	ErrOutputLocked    = errors.New("output directory is locked by another run")
	ErrEmptyDataset    = errors.New("dataset has no rows")
)

// LabelNotFoundError is returned when a label row references a class that is
// missing from the class mapping.
type LabelNotFoundError struct {
	Label string
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("label not found: %s", e.Label)
}

func (e *LabelNotFoundError) Is(target error) bool { return target == ErrLabelNotFound }

// ArrayConversionError means a row could not be coerced to the fixed width a
// tensor needs. It always points at a broken length invariant upstream.
type ArrayConversionError struct {
	Row      int
	Got      int
	Expected int
	Reason   string
}

func (e *ArrayConversionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("array conversion: row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("array conversion: row %d has length %d, expected %d", e.Row, e.Got, e.Expected)
}

func (e *ArrayConversionError) Is(target error) bool { return target == ErrArrayConversion }

// VocabularyLoadError wraps the I/O or decoding failure behind a persisted
// vocabulary or class mapping that could not be read.
type VocabularyLoadError struct {
	Path string
	Err  error
}

func (e *VocabularyLoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *VocabularyLoadError) Unwrap() error { return e.Err }

func (e *VocabularyLoadError) Is(target error) bool { return target == ErrVocabularyLoad }

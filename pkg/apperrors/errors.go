package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ekaya-inc/anime-warehouse/pkg/logging"
)

var (
	ErrMissingSourceFile = errors.New("missing source file")
	ErrSchemaMismatch    = errors.New("source schema mismatch")
	ErrValueCoercion     = errors.New("value coercion failed")
	ErrInvalidStagePlan  = errors.New("invalid stage plan")
)

// MissingSourceFileError reports an input path that does not exist.
type MissingSourceFileError struct {
	Path string
}

func (e *MissingSourceFileError) Error() string {
	return fmt.Sprintf("missing source file: %s", e.Path)
}

func (e *MissingSourceFileError) Is(target error) bool {
	return target == ErrMissingSourceFile
}

// SchemaMismatchError lists every expected column absent from a file header.
type SchemaMismatchError struct {
	Path    string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s missing expected columns: [%s]", e.Path, strings.Join(e.Missing, ", "))
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// ValueCoercionError reports a non-empty field that cannot be parsed to its
// declared type. Line is the 1-based data row (staging line_no).
type ValueCoercionError struct {
	Source string
	Line   int64
	Column string
	Value  string
	Kind   string
	Err    error
}

func (e *ValueCoercionError) Error() string {
	msg := fmt.Sprintf("%s line %d: cannot parse %s value %q as %s", e.Source, e.Line, e.Column, logging.TruncateString(e.Value, logging.MaxValueLogLength), e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValueCoercionError) Is(target error) bool {
	return target == ErrValueCoercion
}

func (e *ValueCoercionError) Unwrap() error {
	return e.Err
}

// StageError wraps a fatal error with the pipeline stage (and source file,
// when the stage is per-file) that produced it.
type StageError struct {
	Stage  string
	Source string
	Err    error
}

func (e *StageError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
)

// TimestampLayouts are the accepted spellings of a source timestamp.
var TimestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
}

// FieldRef locates a staged value for error reporting.
type FieldRef struct {
	Source string
	Line   int64
	Column string
}

func (f FieldRef) coercionError(value, kind string, err error) error {
	return &apperrors.ValueCoercionError{
		Source: f.Source,
		Line:   f.Line,
		Column: f.Column,
		Value:  value,
		Kind:   kind,
		Err:    err,
	}
}

// ParseNullableInt32 parses an optional integer. Empty input is NULL.
func ParseNullableInt32(ref FieldRef, value string) (*int32, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return nil, ref.coercionError(value, "integer", err)
	}
	i := int32(n)
	return &i, nil
}

// ParseNullableReal parses an optional real number. Empty input is NULL.
func ParseNullableReal(ref FieldRef, value string) (*float32, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return nil, ref.coercionError(value, "real", err)
	}
	r := float32(f)
	return &r, nil
}

// ParseNullableTimestamp parses an optional timestamp against TimestampLayouts.
// Empty input is NULL.
func ParseNullableTimestamp(ref FieldRef, value string) (*time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range TimestampLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, ref.coercionError(value, "timestamp", lastErr)
}

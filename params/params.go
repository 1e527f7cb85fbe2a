// Package params decodes the opaque Data string carried by a BusMessage
// into typed values, failing with the error taxonomy's BadRequest kind on
// any malformed input.
package params

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/mrjvadi/busrpc/errs"
)

// ToInt parses s as a canonical base-10 int32. "Canonical" rejects leading
// zeros, leading '+', and surrounding whitespace — anything strconv itself
// would accept as non-decimal or padded.
func ToInt(s string) (int32, error) {
	n, err := toLong(s)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errs.BadRequest("PARSE_ERROR", "value out of int32 range")
	}
	return int32(n), nil
}

// ToShort parses s as a canonical base-10 int16.
func ToShort(s string) (int16, error) {
	n, err := toLong(s)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt16 || n > math.MaxInt16 {
		return 0, errs.BadRequest("PARSE_ERROR", "value out of int16 range")
	}
	return int16(n), nil
}

// ToLong parses s as a canonical base-10 int64.
func ToLong(s string) (int64, error) {
	return toLong(s)
}

func toLong(s string) (int64, error) {
	if s == "" {
		return 0, errs.BadRequest("PARSE_ERROR", "empty integer")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.BadRequest("PARSE_ERROR", "not a canonical base-10 integer")
	}
	if strconv.FormatInt(n, 10) != s {
		return 0, errs.BadRequest("PARSE_ERROR", "not a canonical base-10 integer")
	}
	return n, nil
}

// ToObject decodes raw JSON into a T, failing when the payload does not
// parse or decodes to an absent/null value.
func ToObject[T any](raw *string) (T, error) {
	var zero T
	v, err := toNullableObject[T](raw)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, errs.BadRequest("DATA_INVALID", "data is required")
	}
	return *v, nil
}

// ToNullableObject decodes raw JSON into a *T, returning a nil pointer
// (absent) on null JSON or a nil/absent raw string without failing.
func ToNullableObject[T any](raw *string) (*T, error) {
	return toNullableObject[T](raw)
}

func toNullableObject[T any](raw *string) (*T, error) {
	if raw == nil || *raw == "" || *raw == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return nil, errs.BadRequest("DATA_INVALID", "could not decode data").WithDetails(err.Error())
	}
	return &v, nil
}

// ToListObject decodes raw JSON into a []T, failing on decode failure, an
// absent result, or — when requireNonEmpty is set — an empty sequence.
func ToListObject[T any](raw *string, requireNonEmpty bool) ([]T, error) {
	if raw == nil || *raw == "" {
		return nil, errs.BadRequest("DATA_INVALID", "data is required")
	}
	var v []T
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return nil, errs.BadRequest("DATA_INVALID", "could not decode data").WithDetails(err.Error())
	}
	if v == nil {
		return nil, errs.BadRequest("DATA_INVALID", "data is required")
	}
	if requireNonEmpty && len(v) == 0 {
		return nil, errs.BadRequest("DATA_INVALID", "data must not be empty")
	}
	return v, nil
}

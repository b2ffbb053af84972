// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import "errors"

// Builder error kinds (spec.md section 7). An error during end_* or
// start_* leaves the offending call returning a zero reference; the
// builder becomes unusable for the *current* buffer until Reset.
var (
	// ErrOutOfMemory is returned when the allocator callback refused to
	// grow an arena.
	ErrOutOfMemory = errors.New("flatforge: out of memory")

	// ErrOverflow is returned when a vector's element count would span
	// more bytes than a uoffset can represent. The total buffer size is
	// not checked: the sinks place no bound on the front or back range.
	ErrOverflow = errors.New("flatforge: offset range overflow")

	// ErrTooNested is returned when a start_* call would exceed the
	// configured MaxLevel.
	ErrTooNested = errors.New("flatforge: nesting depth exceeds max level")

	// ErrMisuse is returned when an operation is applied to the wrong
	// frame kind, or an end_* is mismatched with its start_*. A required
	// field missing at CheckRequired is ErrRequiredFieldAbsent instead.
	ErrMisuse = errors.New("flatforge: misuse of builder API")

	// ErrRequiredFieldAbsent is returned by CheckRequired when a field
	// the schema marks required was never added.
	ErrRequiredFieldAbsent = errors.New("flatforge: required field absent")
)

// VerifierError is one of the error kinds enumerated in spec.md section 7.
// Every verification failure path returns a distinct, comparable value so
// tests can assert on the exact failure mode.
type VerifierError struct {
	Kind string
	Pos  int
	msg  string
}

func (e *VerifierError) Error() string {
	if e.msg != "" {
		return "flatforge: verify: " + e.Kind + ": " + e.msg
	}
	return "flatforge: verify: " + e.Kind
}

func verifyErr(kind string, pos int, msg string) *VerifierError {
	return &VerifierError{Kind: kind, Pos: pos, msg: msg}
}

// Verifier error kind names, one per failure path (spec.md section 7).
const (
	KindBadHeader              = "bad_header"
	KindIdentifierMismatch     = "identifier_mismatch"
	KindSizeOutOfRange         = "size_out_of_range"
	KindAlignment              = "alignment"
	KindOffsetOutOfRange       = "offset_out_of_range"
	KindVtableSize             = "vtable_size"
	KindVtableOffset           = "vtable_offset"
	KindTableSize              = "table_size"
	KindTableFieldOutOfRange   = "table_field_out_of_range"
	KindStringUnterminated     = "string_unterminated"
	KindVectorOutOfRange       = "vector_out_of_range"
	KindVectorCountOverflow    = "vector_count_overflow"
	KindUnionTypeUnknown       = "union_type_unknown"
	KindUnionMissingValue      = "union_missing_value"
	KindUnionNoneWithValue     = "union_none_with_value"
	KindRequiredFieldAbsent    = "required_field_absent"
	KindMaxDepthExceeded       = "max_depth_exceeded"
)

// IsKind reports whether err is a *VerifierError of the given kind. It is
// the idiomatic replacement for comparing against a table of sentinel
// errors: every verifier failure carries its position alongside the kind.
func IsKind(err error, kind string) bool {
	var ve *VerifierError
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}

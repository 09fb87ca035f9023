package validation

import (
	"fmt"

	dErrors "hetu/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Sufficient for JSON APIs while preventing memory exhaustion attacks.
	MaxBodySize = 64 * 1024
)

// Slice element count limits
const (
	// MaxBatchCodes is the maximum number of identity codes per batch
	// verification request.
	MaxBatchCodes = 100
)

// String element length limits
const (
	// MaxIdentityCodeLength bounds candidate identity codes at the transport
	// layer. Invalid codes are echoed back in error descriptions, so the cap
	// keeps responses and logs bounded. Well-formed codes are 11 characters.
	MaxIdentityCodeLength = 128

	// MaxActorIDLength is the maximum length of an admin actor identifier.
	MaxActorIDLength = 100
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if len(v) > max {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
		}
	}
	return nil
}

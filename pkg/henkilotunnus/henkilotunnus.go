// Package henkilotunnus parses, validates, and decodes Finnish personal
// identity codes (henkilötunnus).
//
// A code is an 11-character string of the form ddmmyysrrrc: a birth date
// (ddmmyy), a century marker (s), a three-digit individual number (rrr),
// and a checksum symbol (c) drawn from a fixed 31-character alphabet.
// Parsing never normalizes input: the accepted string is kept verbatim and
// round-trips byte for byte.
package henkilotunnus

import (
	"errors"
	"fmt"
	"time"
)

// Sex is the sex category encoded in the parity of the individual number.
type Sex string

const (
	// SexFemale is encoded by an even individual number.
	SexFemale Sex = "female"
	// SexMale is encoded by an odd individual number.
	SexMale Sex = "male"
)

// Sentinel errors returned by Parse and ParseOptional. Match with errors.Is.
var (
	// ErrMissing reports an absent code. Only ParseOptional returns it;
	// Parse treats an empty string as any other format violation.
	ErrMissing = errors.New("personal identity code is missing")
	// ErrInvalidFormat reports a string that is not 11 characters of the
	// documented shape. The returned error echoes the rejected input.
	ErrInvalidFormat = errors.New("personal identity code is not in correct format")
	// ErrChecksumMismatch reports a well-formed string whose checksum
	// symbol does not match the computed one.
	ErrChecksumMismatch = errors.New("personal identity code failed checksum check")
	// ErrInvalidBirthDate reports a date field that does not resolve to a
	// real calendar date. Out-of-range day or month, days past the end of
	// the month, and February 29 in a non-leap resolved year all surface
	// as this one error.
	ErrInvalidBirthDate = errors.New("personal identity code has no date of birth or it's invalid")
)

// Identifier is a parsed, validated personal identity code.
//
// Invariants:
//   - value holds the accepted input verbatim; String never reformats it.
//   - birthDate is midnight UTC of the decoded date of birth, with the
//     century resolved from the marker character.
//   - only the parse functions construct non-zero Identifiers, so any
//     Identifier with IsValid() == true re-validates successfully.
type Identifier struct {
	value     string
	birthDate time.Time
	sex       Sex
}

// Parse validates value and decodes it into an Identifier. It fails with
// ErrInvalidFormat, ErrChecksumMismatch, or ErrInvalidBirthDate at the
// first stage that rejects the input; no partial result is ever returned.
func Parse(value string) (Identifier, error) {
	if err := checkFormat(value); err != nil {
		return Identifier{}, err
	}
	if err := checkChecksum(value); err != nil {
		return Identifier{}, err
	}
	birthDate, err := decodeBirthDate(value)
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{
		value:     value,
		birthDate: birthDate,
		sex:       decodeSex(value),
	}, nil
}

// ParseOptional parses a code that may be absent. A nil value fails with
// ErrMissing; otherwise it behaves exactly like Parse. Use it at trust
// boundaries where the field itself is optional, such as decoded request
// bodies.
func ParseOptional(value *string) (Identifier, error) {
	if value == nil {
		return Identifier{}, ErrMissing
	}
	return Parse(*value)
}

// TryParse parses value without error detail. On failure the returned
// Identifier is the zero value and ok is false.
func TryParse(value string) (Identifier, bool) {
	id, err := Parse(value)
	return id, err == nil
}

// IsValid reports whether value is a well-formed, checksum-correct code
// with a real date of birth. It never panics and accepts no partial
// matches; the empty string is simply invalid.
func IsValid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// MustParse is Parse for fixtures and tests. It panics on invalid input.
func MustParse(value string) Identifier {
	id, err := Parse(value)
	if err != nil {
		panic(fmt.Sprintf("henkilotunnus: MustParse(%q): %v", value, err))
	}
	return id
}

// String returns the canonical form: the exact string the Identifier was
// parsed from, unmodified.
func (id Identifier) String() string { return id.value }

// BirthDate returns the decoded date of birth at midnight UTC.
func (id Identifier) BirthDate() time.Time { return id.birthDate }

// Sex returns the sex category derived from the individual number parity.
func (id Identifier) Sex() Sex { return id.sex }

// IsValid reports whether the Identifier was produced by a successful
// parse. It is false only for the zero value.
func (id Identifier) IsValid() bool { return id.value != "" }

// Equal reports whether two Identifiers hold the same canonical string.
// Decoded fields are not consulted; they are derived from the string.
func (id Identifier) Equal(other Identifier) bool {
	return id.value == other.value
}

// Compare orders Identifiers by date of birth alone and returns -1, 0, or
// +1. Identifiers born on the same day compare as 0 even when Equal
// reports false, so Compare == 0 must not be read as identity. This
// asymmetry between ordering and equality is part of the contract.
func (id Identifier) Compare(other Identifier) int {
	switch {
	case id.birthDate.Before(other.birthDate):
		return -1
	case id.birthDate.After(other.birthDate):
		return 1
	default:
		return 0
	}
}

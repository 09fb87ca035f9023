// Package models defines the verification verdict types shared by the
// service, handler, and cache layers.
package models

import "time"

// Reason categorizes why an identity code failed verification.
type Reason string

const (
	// ReasonFormat marks codes that do not match the ddmmyysrrrc shape.
	ReasonFormat Reason = "format"
	// ReasonChecksum marks well-formed codes whose control character is wrong.
	ReasonChecksum Reason = "checksum"
	// ReasonBirthDate marks codes whose embedded date does not exist.
	ReasonBirthDate Reason = "birth_date"
)

// Verdict is the outcome of verifying a single identity code.
//
// SubjectHash is the only stable key derived from the code; the raw code
// never leaves the handler layer unredacted. For invalid codes the decoded
// fields (BirthDate, Sex, Age, Adult) are zero values and Reason is set.
type Verdict struct {
	SubjectHash string
	Code        string
	Valid       bool
	Reason      Reason
	BirthDate   time.Time
	Sex         string
	Age         int
	Adult       bool
	CheckedAt   time.Time
}

// Package verification hosts the stable, minimal DTOs that downstream
// consumers of verification verdicts depend on. Keep these PII-light and
// versioned independently from any internal verdict or persistence models:
// the raw identity code never appears here, consumers correlate on the
// subject hash.
package verification

// ContractVersion identifies the contract schema version for compatibility checks.
// Bump on breaking changes to the shapes below; consumers can pin or roll forward.
const ContractVersion = "v0.1.0"

// FailureReason classifies why a code failed verification.
type FailureReason string

const (
	// FailureReasonFormat covers structural defects: wrong length, bad
	// characters, unknown century marker.
	FailureReasonFormat FailureReason = "format"
	// FailureReasonChecksum marks a well-formed code whose check character
	// does not match its digits.
	FailureReasonChecksum FailureReason = "checksum"
	// FailureReasonBirthDate marks a code whose date part does not exist in
	// the century its marker selects.
	FailureReasonBirthDate FailureReason = "birth_date"
)

// VerdictRecord is a single verification outcome. Decoded attributes
// (birth date, sex, age, adulthood) are present only when the code is valid.
type VerdictRecord struct {
	Valid       bool          `json:"valid"`
	Reason      FailureReason `json:"reason,omitempty"`
	BirthDate   string        `json:"birth_date,omitempty"`
	Sex         string        `json:"sex,omitempty"`
	Age         *int          `json:"age,omitempty"`
	Adult       *bool         `json:"adult,omitempty"`
	SubjectHash string        `json:"subject_hash"`
	CheckedAt   string        `json:"checked_at"`
}

// BatchRecord is the outcome of a batch verification. Results keep the
// request order.
type BatchRecord struct {
	Results []VerdictRecord `json:"results"`
	Count   int             `json:"count"`
}

// AttestationRecord carries a signed verification receipt. The attestation
// itself is a compact JWS; consumers validate it against the issuer's
// published key material rather than trusting this envelope.
type AttestationRecord struct {
	Attestation string `json:"attestation"`
	SubjectHash string `json:"subject_hash"`
	IssuedAt    string `json:"issued_at"`
	ExpiresAt   string `json:"expires_at"`
}

// Package attestation issues signed receipts for successful identity code
// verifications. A receipt carries the decoded facts a relying party needs
// (birth date, sex, adulthood) without the code itself: the JWT subject is
// the hashed code.
package attestation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hetu/internal/verification/models"
	dErrors "hetu/pkg/domain-errors"
	"hetu/pkg/requestcontext"
)

// ReceiptClaims represents the JWT claims carried by a verification receipt.
type ReceiptClaims struct {
	BirthDate string `json:"birth_date"`
	Sex       string `json:"sex"`
	Adult     bool   `json:"adult"`
	jwt.RegisteredClaims
}

// Receipt is a signed verification receipt ready for the wire.
type Receipt struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service handles receipt creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	receiptTTL time.Duration
}

// New creates a receipt service signing with the given HS256 key.
func New(signingKey string, issuer string, audience string, receiptTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		receiptTTL: receiptTTL,
	}
}

// Issue signs a receipt for a valid verdict. Invalid verdicts are refused;
// a receipt must never exist for a code that failed verification.
func (s *Service) Issue(ctx context.Context, verdict *models.Verdict) (*Receipt, error) {
	if verdict == nil || !verdict.Valid {
		return nil, dErrors.New(dErrors.CodeUnprocessable, "cannot attest an identity code that failed verification")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	jti := hex.EncodeToString(b)
	now := requestcontext.Now(ctx)
	expiresAt := now.Add(s.receiptTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ReceiptClaims{
		BirthDate: verdict.BirthDate.Format("2006-01-02"),
		Sex:       verdict.Sex,
		Adult:     verdict.Adult,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   verdict.SubjectHash,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Token:     signed,
		ID:        jti,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate parses and verifies a receipt token string.
func (s *Service) Validate(tokenString string) (*ReceiptClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty receipt")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &ReceiptClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "receipt expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid receipt")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid receipt")
	}

	claims, ok := parsed.Claims.(*ReceiptClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid receipt claims")
	}

	if claims.Issuer != s.issuer {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid receipt issuer")
	}

	return claims, nil
}

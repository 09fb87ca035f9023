package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	contracts "hetu/contracts/verification"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseBody() []byte
	GetLastResponseStatus() int
	GetAttestation() string
	SetAttestation(token string)
	GetSubjectHash() string
	SetSubjectHash(hash string)
}

// RegisterSteps registers verification-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	// Batch steps
	ctx.Step(`^I verify the batch "([^"]*)"$`, steps.verifyBatch)
	ctx.Step(`^I verify an empty batch$`, steps.verifyEmptyBatch)
	ctx.Step(`^the batch should contain (\d+) results$`, steps.batchShouldContainResults)
	ctx.Step(`^batch result (\d+) should be (valid|invalid)$`, steps.batchResultShouldBe)
	ctx.Step(`^batch result (\d+) should fail with reason "([^"]*)"$`, steps.batchResultShouldFailWith)

	// Attestation steps
	ctx.Step(`^I request an attestation for "([^"]*)"$`, steps.requestAttestation)
	ctx.Step(`^I save the attestation$`, steps.saveAttestation)
	ctx.Step(`^the attestation should be a signed token$`, steps.attestationShouldBeSigned)

	// Verdict decoding steps
	ctx.Step(`^the verdict should decode birth date "([^"]*)" and sex "([^"]*)"$`, steps.verdictShouldDecode)
}

type verificationSteps struct {
	tc        TestContext
	lastBatch contracts.BatchRecord
}

func (s *verificationSteps) verifyBatch(ctx context.Context, codes string) error {
	parts := strings.Split(codes, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		list = append(list, strings.TrimSpace(p))
	}
	if err := s.tc.POST("/v1/verifications/batch", map[string]interface{}{
		"identity_codes": list,
	}); err != nil {
		return err
	}
	// Tolerate error responses; assertion steps check the payload.
	s.lastBatch = contracts.BatchRecord{}
	_ = json.Unmarshal(s.tc.GetLastResponseBody(), &s.lastBatch)
	return nil
}

func (s *verificationSteps) verifyEmptyBatch(ctx context.Context) error {
	return s.tc.POST("/v1/verifications/batch", map[string]interface{}{
		"identity_codes": []string{},
	})
}

func (s *verificationSteps) batchShouldContainResults(ctx context.Context, count int) error {
	if s.lastBatch.Count != count || len(s.lastBatch.Results) != count {
		return fmt.Errorf("expected %d results, got count=%d len=%d\nResponse: %s",
			count, s.lastBatch.Count, len(s.lastBatch.Results), string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *verificationSteps) batchResultShouldBe(ctx context.Context, index int, validity string) error {
	if index >= len(s.lastBatch.Results) {
		return fmt.Errorf("batch has only %d results", len(s.lastBatch.Results))
	}
	want := validity == "valid"
	if s.lastBatch.Results[index].Valid != want {
		return fmt.Errorf("result %d: expected %s, got valid=%t",
			index, validity, s.lastBatch.Results[index].Valid)
	}
	return nil
}

func (s *verificationSteps) batchResultShouldFailWith(ctx context.Context, index int, reason string) error {
	if index >= len(s.lastBatch.Results) {
		return fmt.Errorf("batch has only %d results", len(s.lastBatch.Results))
	}
	result := s.lastBatch.Results[index]
	if result.Valid {
		return fmt.Errorf("result %d is valid, expected failure with reason %q", index, reason)
	}
	if string(result.Reason) != reason {
		return fmt.Errorf("result %d: expected reason %q, got %q", index, reason, result.Reason)
	}
	return nil
}

func (s *verificationSteps) requestAttestation(ctx context.Context, code string) error {
	return s.tc.POST("/v1/attestations", map[string]interface{}{
		"identity_code": code,
	})
}

func (s *verificationSteps) saveAttestation(ctx context.Context) error {
	var record contracts.AttestationRecord
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &record); err != nil {
		return fmt.Errorf("failed to decode attestation response: %w", err)
	}
	if record.Attestation == "" {
		return fmt.Errorf("no attestation in response: %s", string(s.tc.GetLastResponseBody()))
	}
	s.tc.SetAttestation(record.Attestation)
	s.tc.SetSubjectHash(record.SubjectHash)
	return nil
}

func (s *verificationSteps) attestationShouldBeSigned(ctx context.Context) error {
	token := s.tc.GetAttestation()
	// A compact JWS has exactly three dot-separated segments.
	if parts := strings.Split(token, "."); len(parts) != 3 {
		return fmt.Errorf("attestation is not a compact JWS: %q", token)
	}
	return nil
}

func (s *verificationSteps) verdictShouldDecode(ctx context.Context, birthDate, sex string) error {
	var record contracts.VerdictRecord
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &record); err != nil {
		return fmt.Errorf("failed to decode verdict: %w", err)
	}
	if !record.Valid {
		return fmt.Errorf("verdict is invalid (reason %q), expected a decodable code", record.Reason)
	}
	if record.BirthDate != birthDate {
		return fmt.Errorf("expected birth date %q, got %q", birthDate, record.BirthDate)
	}
	if record.Sex != sex {
		return fmt.Errorf("expected sex %q, got %q", sex, record.Sex)
	}
	return nil
}

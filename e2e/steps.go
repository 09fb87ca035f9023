package e2e

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the verification service is running$`, tc.serviceIsRunning)

	// Request steps
	ctx.Step(`^I verify the identity code "([^"]*)"$`, tc.verifyIdentityCode)
	ctx.Step(`^I verify an empty identity code$`, tc.verifyEmptyIdentityCode)
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, tc.postWithEmptyBody)
	ctx.Step(`^I POST to "([^"]*)" with a null identity code$`, tc.postWithNullIdentityCode)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response should carry a subject hash$`, tc.responseShouldCarrySubjectHash)
	ctx.Step(`^log "([^"]*)"$`, tc.logMessage)
}

func (tc *TestContext) serviceIsRunning(ctx context.Context) error {
	if err := tc.GET("/health/live", nil); err != nil {
		return fmt.Errorf("service not reachable at %s: %w", tc.BaseURL, err)
	}
	if tc.LastResponse.StatusCode != 200 {
		return fmt.Errorf("liveness probe returned %d", tc.LastResponse.StatusCode)
	}
	return nil
}

func (tc *TestContext) verifyIdentityCode(ctx context.Context, code string) error {
	return tc.POST("/v1/verifications", map[string]interface{}{
		"identity_code": code,
	})
}

func (tc *TestContext) verifyEmptyIdentityCode(ctx context.Context) error {
	return tc.verifyIdentityCode(ctx, "")
}

func (tc *TestContext) postWithEmptyBody(ctx context.Context, path string) error {
	return tc.POST(path, map[string]interface{}{})
}

func (tc *TestContext) postWithNullIdentityCode(ctx context.Context, path string) error {
	return tc.POST(path, map[string]interface{}{
		"identity_code": nil,
	})
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	if tc.LastResponse.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s",
			expectedStatus, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, field string) error {
	if !tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	actualValue, ok := data[field]
	if !ok {
		return fmt.Errorf("field %s not found in response", field)
	}

	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (tc *TestContext) responseShouldCarrySubjectHash(ctx context.Context) error {
	hash, err := tc.GetResponseField("subject_hash")
	if err != nil {
		return err
	}
	hashStr, ok := hash.(string)
	if !ok || len(hashStr) != 16 {
		return fmt.Errorf("subject_hash should be 16 hex characters, got %v", hash)
	}
	tc.SubjectHash = hashStr
	return nil
}

func (tc *TestContext) logMessage(ctx context.Context, message string) error {
	fmt.Println(message)
	return nil
}

package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseBody() []byte
	GetLastResponseStatus() int
	GetAdminToken() string
}

// RegisterSteps registers admin-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^I purge the verification cache with the admin token$`, steps.purgeWithAdminToken)
	ctx.Step(`^I purge the verification cache without a token$`, steps.purgeWithoutToken)
	ctx.Step(`^I purge the verification cache with token "([^"]*)"$`, steps.purgeWithToken)
	ctx.Step(`^the purge should report at least (\d+) removed entries$`, steps.purgeShouldReportAtLeast)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) purgeWithAdminToken(ctx context.Context) error {
	token := s.tc.GetAdminToken()
	if token == "" {
		return fmt.Errorf("ADMIN_TOKEN is not set; admin scenarios need the token matching the server's ADMIN_TOKEN_HASH")
	}
	return s.tc.POSTWithHeaders("/v1/admin/cache/purge", nil, map[string]string{
		"X-Admin-Token":    token,
		"X-Admin-Actor-ID": "e2e-suite",
	})
}

func (s *adminSteps) purgeWithoutToken(ctx context.Context) error {
	return s.tc.POSTWithHeaders("/v1/admin/cache/purge", nil, nil)
}

func (s *adminSteps) purgeWithToken(ctx context.Context, token string) error {
	return s.tc.POSTWithHeaders("/v1/admin/cache/purge", nil, map[string]string{
		"X-Admin-Token": token,
	})
}

func (s *adminSteps) purgeShouldReportAtLeast(ctx context.Context, minEntries int) error {
	var resp struct {
		PurgedEntries int `json:"purged_entries"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
		return fmt.Errorf("failed to decode purge response: %w", err)
	}
	if resp.PurgedEntries < minEntries {
		return fmt.Errorf("expected at least %d purged entries, got %d", minEntries, resp.PurgedEntries)
	}
	return nil
}

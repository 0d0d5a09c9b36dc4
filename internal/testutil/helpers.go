package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/solvewatch/solvewatch/internal/models"
)

// InsertSolve records a first solve directly in the store, failing the
// test on error. Duplicate inserts are silently absorbed, matching the
// dedup semantics callers rely on.
func InsertSolve(t *testing.T, env *TestEnvironment, platform models.Platform, problemID string, solveDate time.Time, rating string) {
	t.Helper()
	if _, err := env.DB.InsertSolveIfAbsent(env.Ctx, platform, problemID, solveDate, rating); err != nil {
		t.Fatalf("failed to insert solve %s/%s: %v", platform, problemID, err)
	}
}

// SeedTarget stores a goal row for the period.
func SeedTarget(t *testing.T, env *TestEnvironment, period models.Period, easy, medium, hard int) {
	t.Helper()
	target := models.Target{Period: period, Easy: easy, Medium: medium, Hard: hard}
	if err := env.DB.SetTarget(env.Ctx, target); err != nil {
		t.Fatalf("failed to seed %s target: %v", period, err)
	}
}

// SeedCursor sets a platform sync cursor to the given sequence value.
func SeedCursor(t *testing.T, env *TestEnvironment, platform models.Platform, value int64) {
	t.Helper()
	if err := env.DB.SaveCursor(env.Ctx, platform, value); err != nil {
		t.Fatalf("failed to seed %s cursor: %v", platform, err)
	}
}

// ParseJSONResponse decodes the response body into target and closes it.
func ParseJSONResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
}

// AssertStatus fails the test if the response status does not match,
// including the body in the failure for diagnosis.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, body)
	}
}

// AssertErrorResponse checks both the status code and that the error
// message contains the expected fragment.
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedError string) {
	t.Helper()
	if resp.StatusCode != expectedStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", expectedStatus, resp.StatusCode, body)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	ParseJSONResponse(t, resp, &errResp)
	if !strings.Contains(errResp.Error, expectedError) {
		t.Fatalf("expected error containing %q, got %q", expectedError, errResp.Error)
	}
}

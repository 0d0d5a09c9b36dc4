// Package leetcode provides a client for the LeetCode GraphQL API.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/platform"
)

const (
	defaultBaseURL = "https://leetcode.com"
	graphqlPath    = "/graphql/"
	problemURL     = "https://leetcode.com/problems/%s/"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	referer   = "https://leetcode.com/problems/submissions/"
)

// Client is an HTTP client for the LeetCode GraphQL API, scoped to one
// username. Recent accepted submissions and question metadata are public;
// submission details require a session cookie.
type Client struct {
	username   string
	session    string
	csrfToken  string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets a custom HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithSession attaches the LEETCODE_SESSION and csrftoken cookies, enabling
// the authenticated submission-details call.
func WithSession(session, csrfToken string) ClientOption {
	return func(c *Client) {
		c.session = session
		c.csrfToken = csrfToken
	}
}

// NewClient creates a new LeetCode API client for the given username.
func NewClient(username string, opts ...ClientOption) *Client {
	c := &Client{
		username: username,
		baseURL:  defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticated reports whether the client carries a session cookie.
func (c *Client) Authenticated() bool {
	return c.session != ""
}

// FetchRecent returns the username's most recent accepted submissions,
// newest first. Every row is accepted by definition of the upstream list;
// Rating is left empty because the list carries no difficulty and callers
// resolve it per problem.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]models.RawSubmission, error) {
	const op = "recentAcSubmissions"

	var data recentAcData
	if err := c.query(ctx, op, recentAcSubmissionsQuery, map[string]any{
		"username": c.username,
		"limit":    limit,
	}, &data); err != nil {
		return nil, err
	}

	subs := make([]models.RawSubmission, 0, len(data.RecentAcSubmissionList))
	for _, row := range data.RecentAcSubmissionList {
		ts, err := strconv.ParseInt(row.Timestamp, 10, 64)
		if err != nil {
			return nil, &platform.FetchError{
				Platform: models.PlatformLeetCode,
				Op:       op,
				Err:      fmt.Errorf("parse timestamp %q: %w", row.Timestamp, err),
			}
		}
		subs = append(subs, models.RawSubmission{
			Platform:      models.PlatformLeetCode,
			ExternalID:    row.ID,
			SequenceValue: ts,
			ProblemKey:    row.TitleSlug,
			Accepted:      true,
			Title:         row.Title,
			Language:      row.Lang,
			URL:           fmt.Sprintf(problemURL, row.TitleSlug),
			SubmittedAt:   time.Unix(ts, 0),
		})
	}
	return subs, nil
}

// ResolveRating returns the difficulty label (Easy, Medium or Hard) for a
// problem slug, or an empty string when the question is unknown.
func (c *Client) ResolveRating(ctx context.Context, problemKey string) (string, error) {
	var data questionData
	if err := c.query(ctx, "questionDifficulty", questionDifficultyQuery, map[string]any{
		"titleSlug": problemKey,
	}, &data); err != nil {
		return "", err
	}
	if data.Question == nil {
		return "", nil
	}
	return data.Question.Difficulty, nil
}

// SubmissionDetail fetches runtime, memory, beats-percentiles and source
// code for one of the account's own submissions. It returns (nil, nil) when
// the client has no session or the upstream withholds the details, so
// callers treat missing detail as absent rather than failed.
func (c *Client) SubmissionDetail(ctx context.Context, externalID string) (*models.SolutionDetail, error) {
	if !c.Authenticated() {
		return nil, nil
	}

	const op = "submissionDetails"
	id, err := strconv.Atoi(externalID)
	if err != nil {
		return nil, &platform.FetchError{
			Platform: models.PlatformLeetCode,
			Op:       op,
			Err:      fmt.Errorf("parse submission id %q: %w", externalID, err),
		}
	}

	var data submissionDetailsData
	if err := c.query(ctx, op, submissionDetailsQuery, map[string]any{
		"submissionId": id,
	}, &data); err != nil {
		return nil, err
	}
	if data.SubmissionDetails == nil {
		return nil, nil
	}

	d := data.SubmissionDetails
	return &models.SolutionDetail{
		Runtime:           fmt.Sprintf("%d ms", d.Runtime),
		Memory:            fmt.Sprintf("%d KB", d.Memory/1024),
		RuntimePercentile: decimal.NewFromFloat(d.RuntimePercentile),
		MemoryPercentile:  decimal.NewFromFloat(d.MemoryPercentile),
		Code:              d.Code,
	}, nil
}

// query runs one GraphQL operation and decodes its data payload into out.
func (c *Client) query(ctx context.Context, op, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{
		Query:     strings.ReplaceAll(query, "\n", " "),
		Variables: variables,
	})
	if err != nil {
		return &platform.FetchError{Platform: models.PlatformLeetCode, Op: op, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+graphqlPath, bytes.NewReader(body))
	if err != nil {
		return &platform.FetchError{Platform: models.PlatformLeetCode, Op: op, Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Referer", referer)
	httpReq.Header.Set("x-requested-with", "XMLHttpRequest")
	if c.csrfToken != "" {
		httpReq.Header.Set("x-csrftoken", c.csrfToken)
		httpReq.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.csrfToken})
	}
	if c.session != "" {
		httpReq.AddCookie(&http.Cookie{Name: "LEETCODE_SESSION", Value: c.session})
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &platform.FetchError{Platform: models.PlatformLeetCode, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &platform.FetchError{Platform: models.PlatformLeetCode, Op: op, Err: err}
	}

	if resp.StatusCode >= 400 {
		return &platform.UpstreamError{
			Platform:   models.PlatformLeetCode,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &platform.FetchError{Platform: models.PlatformLeetCode, Op: op, Err: err}
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return &platform.UpstreamError{
			Platform:   models.PlatformLeetCode,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    strings.Join(messages, "; "),
		}
	}

	if len(envelope.Data) == 0 {
		return &platform.UpstreamError{
			Platform:   models.PlatformLeetCode,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "response carried no data",
		}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &platform.FetchError{Platform: models.PlatformLeetCode, Op: op, Err: err}
	}
	return nil
}

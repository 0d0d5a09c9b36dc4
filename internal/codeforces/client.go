// Package codeforces provides a client for the Codeforces REST API.
package codeforces

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/platform"
)

const (
	defaultBaseURL = "https://codeforces.com/api"
	problemURL     = "https://codeforces.com/contest/%d/problem/%s"

	methodUserStatus = "user.status"
	verdictOK        = "OK"

	// The API accepts any six-character rand prefix as long as the same one
	// opens the signed string and the apiSig parameter.
	sigRand = "123456"
)

// Client is an HTTP client for the Codeforces API, scoped to one handle.
type Client struct {
	handle     string
	apiKey     string
	apiSecret  string
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

// WithCredentials enables request signing. Unsigned requests still work for
// public data but are rate-limited more aggressively.
func WithCredentials(apiKey, apiSecret string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
		c.apiSecret = apiSecret
	}
}

// NewClient creates a new Codeforces API client for the given handle.
func NewClient(handle string, opts ...ClientOption) *Client {
	c := &Client{
		handle:  handle,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecent returns the handle's most recent submissions, newest first,
// exactly as user.status orders them. All verdicts are included; Accepted is
// only set on "OK" rows.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]models.RawSubmission, error) {
	params := url.Values{}
	params.Set("handle", c.handle)
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(limit))
	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
		params.Set("time", strconv.FormatInt(time.Now().Unix(), 10))
		params.Set("apiSig", apiSig(methodUserStatus, c.apiSecret, params))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/"+methodUserStatus+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &platform.FetchError{Platform: models.PlatformCodeforces, Op: methodUserStatus, Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &platform.FetchError{Platform: models.PlatformCodeforces, Op: methodUserStatus, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &platform.FetchError{Platform: models.PlatformCodeforces, Op: methodUserStatus, Err: err}
	}

	var status statusResponse
	if err := json.Unmarshal(respBody, &status); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &platform.UpstreamError{
				Platform:   models.PlatformCodeforces,
				Op:         methodUserStatus,
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
		}
		return nil, &platform.FetchError{Platform: models.PlatformCodeforces, Op: methodUserStatus, Err: err}
	}

	// Failures arrive both as HTTP errors and as status "FAILED" envelopes,
	// sometimes with a 200 underneath.
	if resp.StatusCode >= 400 || status.Status != "OK" {
		return nil, &platform.UpstreamError{
			Platform:   models.PlatformCodeforces,
			Op:         methodUserStatus,
			StatusCode: resp.StatusCode,
			Message:    status.Comment,
		}
	}

	subs := make([]models.RawSubmission, 0, len(status.Result))
	for _, s := range status.Result {
		subs = append(subs, toRawSubmission(s))
	}
	return subs, nil
}

func toRawSubmission(s Submission) models.RawSubmission {
	rating := "NA"
	if s.Problem.Rating > 0 {
		rating = strconv.Itoa(s.Problem.Rating)
	}
	return models.RawSubmission{
		Platform:      models.PlatformCodeforces,
		ExternalID:    strconv.FormatInt(s.ID, 10),
		SequenceValue: s.ID,
		ProblemKey:    fmt.Sprintf("%d-%s", s.Problem.ContestID, s.Problem.Index),
		Accepted:      s.Verdict == verdictOK,
		Title:         s.Problem.Name,
		Rating:        rating,
		Language:      s.ProgrammingLanguage,
		URL:           fmt.Sprintf(problemURL, s.Problem.ContestID, s.Problem.Index),
		SubmittedAt:   time.Unix(s.CreationTimeSeconds, 0),
	}
}

// apiSig computes the authenticated-request signature: a six-character rand
// prefix followed by the SHA-512 hex digest of
// "<rand>/<method>?<sorted params>#<secret>". Parameter values are hashed
// unescaped, in lexicographic key order.
func apiSig(method, secret string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}

	digest := sha512.Sum512([]byte(sigRand + "/" + method + "?" + strings.Join(pairs, "&") + "#" + secret))
	return sigRand + hex.EncodeToString(digest[:])
}

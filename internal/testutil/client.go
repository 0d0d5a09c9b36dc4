package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"
)

// TestClient issues requests against a TestServer with the JSON plumbing
// and failure reporting tests would otherwise repeat.
type TestClient struct {
	t       *testing.T
	baseURL string
	client  *http.Client
	token   string
}

// NewTestClient returns a client bound to the test server.
func NewTestClient(t *testing.T, ts *TestServer) *TestClient {
	return &TestClient{
		t:       t,
		baseURL: ts.URL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithToken returns a copy of the client that sends the bearer token on
// every request.
func (c *TestClient) WithToken(token string) *TestClient {
	clone := *c
	clone.token = token
	return &clone
}

// Request sends an HTTP request, marshaling body to JSON when non-nil.
func (c *TestClient) Request(method, path string, body interface{}) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		c.t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func (c *TestClient) Get(path string) *http.Response {
	return c.Request(http.MethodGet, path, nil)
}

func (c *TestClient) Post(path string, body interface{}) *http.Response {
	return c.Request(http.MethodPost, path, body)
}

func (c *TestClient) Put(path string, body interface{}) *http.Response {
	return c.Request(http.MethodPut, path, body)
}

// ParseJSON decodes the response body into target and closes it.
func (c *TestClient) ParseJSON(resp *http.Response, target interface{}) {
	c.t.Helper()
	ParseJSONResponse(c.t, resp, target)
}

// RequireStatus fails the test unless the response carries the expected
// status code.
func (c *TestClient) RequireStatus(resp *http.Response, expected int) {
	c.t.Helper()
	AssertStatus(c.t, resp, expected)
}

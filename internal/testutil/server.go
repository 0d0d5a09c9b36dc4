package testutil

import (
	"context"
	"log"
	"net"
	"net/http"
	"testing"
	"time"
)

// TestServer runs an HTTP handler on a real loopback listener so
// integration tests exercise the full request path, middleware included.
type TestServer struct {
	Server *http.Server
	URL    string
	Env    *TestEnvironment

	listener net.Listener
}

// StartTestServer serves the handler on an ephemeral port and blocks until
// /health answers. Shutdown is registered via t.Cleanup.
func StartTestServer(t *testing.T, env *TestEnvironment, handler http.Handler) *TestServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	server := &http.Server{Handler: handler}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("test server error: %s", err)
		}
	}()

	url := "http://" + listener.Addr().String()
	waitForServer(t, url)

	ts := &TestServer{
		Server:   server,
		URL:      url,
		Env:      env,
		listener: listener,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("failed to shut down test server: %s", err)
		}
	})
	return ts
}

// waitForServer polls /health until the server answers 200 or the
// deadline passes.
func waitForServer(t *testing.T, baseURL string) {
	t.Helper()
	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("test server did not become ready")
}

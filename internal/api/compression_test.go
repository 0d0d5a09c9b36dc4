package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// TestCompressionMiddleware tests that gzip compression is applied to responses
func TestCompressionMiddleware(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &fakeReporter{report: reportFixture()}, nil, nil, Config{})

	t.Run("compresses JSON responses when client accepts gzip", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		contentEncoding := w.Header().Get("Content-Encoding")
		if contentEncoding != "gzip" {
			t.Errorf("expected Content-Encoding: gzip, got %q", contentEncoding)
		}

		// Verify response is actually gzipped by decompressing it
		reader, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("failed to create gzip reader: %v", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to decompress response: %v", err)
		}

		// Health endpoint should return JSON with "status"
		body := string(decompressed)
		if !strings.Contains(body, "status") {
			t.Errorf("expected decompressed body to contain 'status', got: %s", body)
		}
	})

	t.Run("does not compress when client does not accept gzip", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		contentEncoding := w.Header().Get("Content-Encoding")
		if contentEncoding == "gzip" {
			t.Error("expected no compression without Accept-Encoding header")
		}

		body := w.Body.String()
		if !strings.Contains(body, "status") {
			t.Errorf("expected body to contain 'status', got: %s", body)
		}
	})

	t.Run("compression works with error responses", func(t *testing.T) {
		// Request a non-existent endpoint to trigger 404
		req := httptest.NewRequest("GET", "/nonexistent", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", w.Code)
		}

		// Even error responses should be compressed
		if w.Header().Get("Content-Encoding") != "gzip" {
			t.Error("expected gzip compression for error response")
		}

		reader, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("failed to create gzip reader: %v", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to decompress response: %v", err)
		}

		if len(decompressed) == 0 {
			t.Error("expected non-empty decompressed error response")
		}
	})

	t.Run("compressed stats response matches uncompressed", func(t *testing.T) {
		reqUncompressed := httptest.NewRequest("GET", "/api/v1/stats/daily", nil)
		wUncompressed := httptest.NewRecorder()
		handler.ServeHTTP(wUncompressed, reqUncompressed)

		reqCompressed := httptest.NewRequest("GET", "/api/v1/stats/daily", nil)
		reqCompressed.Header.Set("Accept-Encoding", "gzip")
		wCompressed := httptest.NewRecorder()
		handler.ServeHTTP(wCompressed, reqCompressed)

		if wUncompressed.Body.Len() == 0 {
			t.Error("expected non-empty uncompressed response")
		}
		if wCompressed.Body.Len() == 0 {
			t.Error("expected non-empty compressed response")
		}

		reader, err := gzip.NewReader(bytes.NewReader(wCompressed.Body.Bytes()))
		if err != nil {
			t.Fatalf("failed to create gzip reader: %v", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to decompress: %v", err)
		}

		if string(decompressed) != wUncompressed.Body.String() {
			t.Error("decompressed content does not match original uncompressed content")
		}
	})
}

// TestBrotliCompression tests that Brotli compression works correctly
func TestBrotliCompression(t *testing.T) {
	handler := newTestHandler(newFakeStore(), &fakeReporter{report: reportFixture()}, nil, nil, Config{})

	t.Run("compresses with Brotli when client accepts br", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Accept-Encoding", "br")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		contentEncoding := w.Header().Get("Content-Encoding")
		if contentEncoding != "br" {
			t.Errorf("expected Content-Encoding: br, got %q", contentEncoding)
		}

		// Verify response is actually Brotli-compressed by decompressing it
		reader := brotli.NewReader(w.Body)
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to decompress Brotli response: %v", err)
		}

		body := string(decompressed)
		if !strings.Contains(body, "status") {
			t.Errorf("expected decompressed body to contain 'status', got: %s", body)
		}
	})

	t.Run("prefers Brotli over gzip when both are accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Accept-Encoding", "gzip, br")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		// Should prefer Brotli (better compression)
		contentEncoding := w.Header().Get("Content-Encoding")
		if contentEncoding != "br" {
			t.Errorf("expected Content-Encoding: br (preferred), got %q", contentEncoding)
		}

		reader := brotli.NewReader(w.Body)
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to decompress Brotli response: %v", err)
		}

		if len(decompressed) == 0 {
			t.Error("expected non-empty decompressed response")
		}
	})

	t.Run("falls back to gzip when Brotli not accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		contentEncoding := w.Header().Get("Content-Encoding")
		if contentEncoding != "gzip" {
			t.Errorf("expected Content-Encoding: gzip (fallback), got %q", contentEncoding)
		}

		reader, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("failed to create gzip reader: %v", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to decompress gzip response: %v", err)
		}

		if len(decompressed) == 0 {
			t.Error("expected non-empty decompressed response")
		}
	})

	t.Run("gzip and Brotli decompress to the same content", func(t *testing.T) {
		reqGzip := httptest.NewRequest("GET", "/api/v1/stats/daily", nil)
		reqGzip.Header.Set("Accept-Encoding", "gzip")
		wGzip := httptest.NewRecorder()
		handler.ServeHTTP(wGzip, reqGzip)

		reqBrotli := httptest.NewRequest("GET", "/api/v1/stats/daily", nil)
		reqBrotli.Header.Set("Accept-Encoding", "br")
		wBrotli := httptest.NewRecorder()
		handler.ServeHTTP(wBrotli, reqBrotli)

		gzipReader, err := gzip.NewReader(bytes.NewReader(wGzip.Body.Bytes()))
		if err != nil {
			t.Fatalf("failed to create gzip reader: %v", err)
		}
		gzipContent, err := io.ReadAll(gzipReader)
		if err != nil {
			t.Fatalf("failed to decompress gzip response: %v", err)
		}

		brotliReader := brotli.NewReader(bytes.NewReader(wBrotli.Body.Bytes()))
		brotliContent, err := io.ReadAll(brotliReader)
		if err != nil {
			t.Fatalf("failed to decompress Brotli response: %v", err)
		}

		if string(gzipContent) != string(brotliContent) {
			t.Error("gzip and Brotli decompressed content should match")
		}
	})
}

// TestZstdRequestDecompression tests that zstd-compressed request bodies are decompressed
func TestZstdRequestDecompression(t *testing.T) {
	// Test the decompression middleware directly
	var receivedBody []byte

	captureHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	handler := decompressRequests()(captureHandler)

	t.Run("decompresses zstd-encoded request body", func(t *testing.T) {
		payload := map[string]interface{}{
			"easy":   2,
			"medium": 1,
			"hard":   0,
		}
		jsonPayload, _ := json.Marshal(payload)

		encoder, _ := zstd.NewWriter(nil)
		compressed := encoder.EncodeAll(jsonPayload, nil)

		req := httptest.NewRequest("PUT", "/test", bytes.NewReader(compressed))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Encoding", "zstd")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		// Verify the handler received decompressed JSON
		var received map[string]interface{}
		if err := json.Unmarshal(receivedBody, &received); err != nil {
			t.Fatalf("failed to parse received body as JSON: %v", err)
		}

		if received["easy"].(float64) != 2 {
			t.Errorf("expected easy 2, got %v", received["easy"])
		}
	})

	t.Run("passes through uncompressed request body", func(t *testing.T) {
		payload := map[string]string{"msg": "hello"}
		jsonPayload, _ := json.Marshal(payload)

		req := httptest.NewRequest("PUT", "/test", bytes.NewReader(jsonPayload))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		if string(receivedBody) != string(jsonPayload) {
			t.Errorf("expected body to pass through unchanged")
		}
	})

	t.Run("rejects unsupported Content-Encoding", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/test", strings.NewReader("test"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Encoding", "deflate")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnsupportedMediaType {
			t.Errorf("expected status 415 for unsupported encoding, got %d", w.Code)
		}
	})

	t.Run("zstd-compressed target update round-trips through the router", func(t *testing.T) {
		store := newFakeStore()
		routed := newTestHandler(store, &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		jsonPayload := []byte(`{"easy": 3, "medium": 2, "hard": 1}`)
		encoder, _ := zstd.NewWriter(nil)
		compressed := encoder.EncodeAll(jsonPayload, nil)

		req := httptest.NewRequest("PUT", "/api/v1/targets/weekly", bytes.NewReader(compressed))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Encoding", "zstd")

		w := httptest.NewRecorder()
		routed.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}

		want := 3
		if store.lastSet.Easy != want {
			t.Errorf("expected stored easy %d, got %d", want, store.lastSet.Easy)
		}
	})
}

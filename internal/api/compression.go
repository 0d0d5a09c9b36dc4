package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/zstd"
)

// compressResponses builds the response compression middleware. Brotli wins
// when the client accepts it, then zstd, then gzip. text/plain is included so
// http.Error bodies compress too.
func compressResponses() func(http.Handler) http.Handler {
	compressor := middleware.NewCompressor(5, "application/json", "text/plain")
	compressor.SetEncoder("zstd", func(w io.Writer, level int) io.Writer {
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil
		}
		return zw
	})
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return compressor.Handler
}

// decompressRequests handles decompression of request bodies based on the
// Content-Encoding header. Supports zstd; an absent header passes through.
func decompressRequests() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := r.Header.Get("Content-Encoding")

			// No compression, pass through
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			if strings.EqualFold(encoding, "zstd") {
				decoder, err := zstd.NewReader(r.Body)
				if err != nil {
					respondError(w, http.StatusBadRequest, "Failed to create zstd decoder")
					return
				}
				defer decoder.Close()

				// Replace request body with decompressed reader
				r.Body = io.NopCloser(decoder)

				// Remove Content-Encoding header so downstream handlers see uncompressed data
				r.Header.Del("Content-Encoding")

				// Update Content-Length to unknown since decompressed size differs
				r.Header.Del("Content-Length")
				r.ContentLength = -1

				next.ServeHTTP(w, r)
				return
			}

			respondError(w, http.StatusUnsupportedMediaType,
				"Unsupported Content-Encoding: "+encoding)
		})
	}
}

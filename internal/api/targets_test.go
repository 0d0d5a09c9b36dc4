package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/solvewatch/solvewatch/internal/models"
)

func putTargetRequest(path, token, body string) *http.Request {
	req := httptest.NewRequest("PUT", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHandleGetTarget(t *testing.T) {
	t.Run("returns stored target", func(t *testing.T) {
		store := newFakeStore()
		store.targets[models.PeriodWeekly] = models.Target{Period: models.PeriodWeekly, Easy: 10, Medium: 5, Hard: 2}
		handler := newTestHandler(store, &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		req := httptest.NewRequest("GET", "/api/v1/targets/weekly", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}

		target := decodeBody(t, w)["target"].(map[string]interface{})
		if target["period"] != "weekly" {
			t.Errorf("expected weekly period, got %v", target["period"])
		}
		if target["easy"].(float64) != 10 {
			t.Errorf("expected easy 10, got %v", target["easy"])
		}
	})

	t.Run("unset period returns zero target", func(t *testing.T) {
		handler := newTestHandler(newFakeStore(), &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		req := httptest.NewRequest("GET", "/api/v1/targets/monthly", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		target := decodeBody(t, w)["target"].(map[string]interface{})
		if target["easy"].(float64) != 0 || target["medium"].(float64) != 0 || target["hard"].(float64) != 0 {
			t.Errorf("expected all-zero target, got %v", target)
		}
	})

	t.Run("rejects unknown period", func(t *testing.T) {
		handler := newTestHandler(newFakeStore(), &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		req := httptest.NewRequest("GET", "/api/v1/targets/hourly", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandleSetTarget(t *testing.T) {
	t.Run("stores target and echoes it back", func(t *testing.T) {
		store := newFakeStore()
		handler := newTestHandler(store, &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		req := putTargetRequest("/api/v1/targets/daily", "", `{"easy": 2, "medium": 1, "hard": 0}`)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}
		want := models.Target{Period: models.PeriodDaily, Easy: 2, Medium: 1, Hard: 0}
		if store.lastSet != want {
			t.Errorf("expected stored target %+v, got %+v", want, store.lastSet)
		}

		target := decodeBody(t, w)["target"].(map[string]interface{})
		if target["easy"].(float64) != 2 {
			t.Errorf("expected easy 2, got %v", target["easy"])
		}
		if target["updated_at"] == nil {
			t.Error("expected updated_at to be set")
		}
	})

	t.Run("requires bearer token when configured", func(t *testing.T) {
		store := newFakeStore()
		handler := newTestHandler(store, &fakeReporter{report: reportFixture()}, nil, nil, Config{APIToken: "watch-token"})

		tests := []struct {
			name  string
			token string
			want  int
		}{
			{"missing token", "", http.StatusUnauthorized},
			{"wrong token", "other-token", http.StatusUnauthorized},
			{"correct token", "watch-token", http.StatusOK},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := putTargetRequest("/api/v1/targets/daily", tt.token, `{"easy": 1, "medium": 1, "hard": 1}`)
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				if w.Code != tt.want {
					t.Errorf("expected status %d, got %d", tt.want, w.Code)
				}
			})
		}

		if store.setCalls != 1 {
			t.Errorf("expected exactly 1 stored write, got %d", store.setCalls)
		}
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		store := newFakeStore()
		handler := newTestHandler(store, &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		tests := []struct {
			name string
			path string
			body string
		}{
			{"unknown period", "/api/v1/targets/hourly", `{"easy": 1, "medium": 1, "hard": 1}`},
			{"malformed JSON", "/api/v1/targets/daily", `{"easy": `},
			{"missing field", "/api/v1/targets/daily", `{"easy": 1, "medium": 1}`},
			{"negative threshold", "/api/v1/targets/daily", `{"easy": -1, "medium": 0, "hard": 0}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := putTargetRequest(tt.path, "", tt.body)
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				if w.Code != http.StatusBadRequest {
					t.Errorf("expected status 400, got %d. Body: %s", w.Code, w.Body.String())
				}
			})
		}

		if store.setCalls != 0 {
			t.Errorf("expected no stored writes, got %d", store.setCalls)
		}
	})

	t.Run("rejects missing content type", func(t *testing.T) {
		handler := newTestHandler(newFakeStore(), &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		req := httptest.NewRequest("PUT", "/api/v1/targets/daily", strings.NewReader(`{"easy": 1, "medium": 1, "hard": 1}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("expected status 415, got %d", w.Code)
		}
	})
}

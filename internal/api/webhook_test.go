package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/telegram"
)

const testWebhookSecret = "hook-secret"

func newWebhookFixture() (http.Handler, *telegram.MockService, *fakeStore) {
	store := newFakeStore()
	mock := telegram.NewMockService()
	handler := newTestHandler(store, &fakeReporter{report: reportFixture()}, mock, nil,
		Config{WebhookSecret: testWebhookSecret, ChatID: 42})
	return handler, mock, store
}

func commandUpdate(chatID int64, chatType, text string) telegramUpdate {
	return telegramUpdate{
		UpdateID: 1,
		Message: &telegramMessage{
			MessageID: 10,
			Chat:      telegramChat{ID: chatID, Type: chatType},
			Text:      text,
		},
	}
}

func postWebhook(t *testing.T, handler http.Handler, secret string, update telegramUpdate) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("failed to marshal update: %v", err)
	}
	return postWebhookRaw(handler, secret, body)
}

func postWebhookRaw(handler http.Handler, secret string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/telegram/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func lastText(t *testing.T, mock *telegram.MockService) string {
	t.Helper()
	if len(mock.Texts) == 0 {
		t.Fatal("expected a telegram reply, got none")
	}
	return mock.Texts[len(mock.Texts)-1]
}

func TestWebhookAuth(t *testing.T) {
	t.Run("not mounted without a secret", func(t *testing.T) {
		handler := newTestHandler(newFakeStore(), &fakeReporter{report: reportFixture()}, nil, nil, Config{})

		w := postWebhookRaw(handler, "anything", []byte(`{}`))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		w := postWebhook(t, handler, "wrong-secret", commandUpdate(42, "private", "/ping"))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
		if len(mock.Texts) != 0 {
			t.Errorf("expected no replies, got %v", mock.Texts)
		}
	})

	t.Run("acknowledges malformed payload", func(t *testing.T) {
		// A non-200 would only make Telegram redeliver the same broken update.
		handler, _, _ := newWebhookFixture()

		w := postWebhookRaw(handler, testWebhookSecret, []byte(`{"update_id": `))
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["status"] != "ok" {
			t.Errorf("expected ok status, got %v", body)
		}
	})
}

func TestWebhookCommandDispatch(t *testing.T) {
	t.Run("ping replies pong", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		w := postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/ping"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if got := lastText(t, mock); got != "Pong!" {
			t.Errorf("expected Pong!, got %q", got)
		}
	})

	t.Run("ignores group chats", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		w := postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "group", "/ping"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if len(mock.Texts) != 0 {
			t.Errorf("expected no replies, got %v", mock.Texts)
		}
	})

	t.Run("ignores other chats", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(99, "private", "/ping"))
		if len(mock.Texts) != 0 {
			t.Errorf("expected no replies, got %v", mock.Texts)
		}
	})

	t.Run("ignores plain text", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "hello there"))
		if len(mock.Texts) != 0 {
			t.Errorf("expected no replies, got %v", mock.Texts)
		}
	})

	t.Run("stats sends the daily summary", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/stats"))
		if got := lastText(t, mock); !strings.Contains(got, "Grand Total Solved Today") {
			t.Errorf("expected daily summary, got %q", got)
		}
	})

	t.Run("wstats sends the weekly summary", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/wstats"))
		if got := lastText(t, mock); !strings.Contains(got, "Grand Total Solved This Week") {
			t.Errorf("expected weekly summary, got %q", got)
		}
	})

	t.Run("tolerates bot mention suffix", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/stats@solvewatch_bot"))
		if got := lastText(t, mock); !strings.Contains(got, "Grand Total Solved Today") {
			t.Errorf("expected daily summary, got %q", got)
		}
	})

	t.Run("reports reporter failure in chat", func(t *testing.T) {
		store := newFakeStore()
		mock := telegram.NewMockService()
		handler := newTestHandler(store, &fakeReporter{err: errors.New("db down")}, mock, nil,
			Config{WebhookSecret: testWebhookSecret, ChatID: 42})

		w := postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/stats"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if got := lastText(t, mock); got != "❌ Failed to fetch stats. Please try again." {
			t.Errorf("unexpected failure reply: %q", got)
		}
	})
}

func TestWebhookTargetCommands(t *testing.T) {
	t.Run("dset stores the daily target", func(t *testing.T) {
		handler, mock, store := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/dset 2 1 0"))

		want := models.Target{Period: models.PeriodDaily, Easy: 2, Medium: 1, Hard: 0}
		if store.lastSet != want {
			t.Errorf("expected stored target %+v, got %+v", want, store.lastSet)
		}
		if got := lastText(t, mock); !strings.Contains(got, "Daily LeetCode Target Set") {
			t.Errorf("expected confirmation, got %q", got)
		}
	})

	t.Run("wset stores the weekly target", func(t *testing.T) {
		handler, mock, store := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/wset 10 5 2"))

		want := models.Target{Period: models.PeriodWeekly, Easy: 10, Medium: 5, Hard: 2}
		if store.lastSet != want {
			t.Errorf("expected stored target %+v, got %+v", want, store.lastSet)
		}
		if got := lastText(t, mock); !strings.Contains(got, "Weekly LeetCode Target Set") {
			t.Errorf("expected confirmation, got %q", got)
		}
	})

	t.Run("wrong argument count sends usage", func(t *testing.T) {
		handler, mock, store := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/dset 2 1"))

		got := lastText(t, mock)
		if !strings.Contains(got, "Usage:") || !strings.Contains(got, "/dset <easy> <medium> <hard>") {
			t.Errorf("expected usage reply, got %q", got)
		}
		if store.setCalls != 0 {
			t.Errorf("expected no stored writes, got %d", store.setCalls)
		}
	})

	t.Run("rejects non-integer arguments", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/dset a b c"))
		if got := lastText(t, mock); got != "❌ All arguments must be valid integers." {
			t.Errorf("unexpected reply: %q", got)
		}
	})

	t.Run("rejects negative arguments", func(t *testing.T) {
		handler, mock, _ := newWebhookFixture()

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/dset -1 0 0"))
		if got := lastText(t, mock); got != "❌ All target values must be non-negative integers." {
			t.Errorf("unexpected reply: %q", got)
		}
	})

	t.Run("reports store failure in chat", func(t *testing.T) {
		handler, mock, store := newWebhookFixture()
		store.setErr = errors.New("db down")

		postWebhook(t, handler, testWebhookSecret, commandUpdate(42, "private", "/dset 2 1 0"))
		if got := lastText(t, mock); got != "❌ Failed to set daily target. Please try again." {
			t.Errorf("unexpected reply: %q", got)
		}
	})
}

// Package telegram delivers watcher notifications through the Telegram Bot
// API. Delivery is at-most-once: callers log failed sends and move on, and
// the accounting that triggered a send is never rolled back.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/solvewatch/solvewatch/internal/models"
)

const defaultBaseURL = "https://api.telegram.org"

// Service defines the interface for notification delivery.
type Service interface {
	// SendSolveAlert announces one fresh first-solve.
	SendSolveAlert(ctx context.Context, event models.SolveEvent) error
	// SendSummary delivers a period report with the period's targets.
	SendSummary(ctx context.Context, report models.Report, target models.Target) error
	// SendSolutionDocument uploads the solve's source code as a file.
	SendSolutionDocument(ctx context.Context, event models.SolveEvent) error
	// SendText delivers a raw Markdown message.
	SendText(ctx context.Context, text string) error
}

// BotService implements Service against the Bot API, always messaging the
// one configured chat.
type BotService struct {
	token      string
	chatID     int64
	baseURL    string
	httpClient *http.Client
}

// BotOption configures a BotService.
type BotOption func(*BotService)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) BotOption {
	return func(s *BotService) {
		s.baseURL = url
	}
}

// WithTimeout sets a custom HTTP timeout.
func WithTimeout(d time.Duration) BotOption {
	return func(s *BotService) {
		s.httpClient.Timeout = d
	}
}

// NewBotService creates a Bot API service for one bot token and chat.
func NewBotService(token string, chatID int64, opts ...BotOption) *BotService {
	s := &BotService{
		token:   token,
		chatID:  chatID,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendSolveAlert sends the solve notification; when the solution code was
// too long to inline it follows up with a document upload.
func (s *BotService) SendSolveAlert(ctx context.Context, event models.SolveEvent) error {
	text, codeInlined := FormatSolveAlert(event)
	if err := s.sendMessage(ctx, text); err != nil {
		return err
	}
	if event.Detail != nil && event.Detail.Code != "" && !codeInlined {
		return s.SendSolutionDocument(ctx, event)
	}
	return nil
}

// SendSummary sends a formatted period report.
func (s *BotService) SendSummary(ctx context.Context, report models.Report, target models.Target) error {
	return s.sendMessage(ctx, FormatSummary(report, target))
}

// SendText sends a raw Markdown message.
func (s *BotService) SendText(ctx context.Context, text string) error {
	return s.sendMessage(ctx, text)
}

// sendMessageRequest is the request body for the sendMessage method.
type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// apiResponse is the Bot API envelope; Description is set on failures.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *BotService) sendMessage(ctx context.Context, text string) error {
	reqBody := sendMessageRequest{
		ChatID:                s.chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.methodURL("sendMessage"), bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req)
}

// SendSolutionDocument uploads the solve's source code as a file named after
// the problem. Solves without code are a no-op.
func (s *BotService) SendSolutionDocument(ctx context.Context, event models.SolveEvent) error {
	if event.Detail == nil || event.Detail.Code == "" {
		return nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(s.chatID, 10)); err != nil {
		return fmt.Errorf("failed to build document request: %w", err)
	}
	if err := w.WriteField("caption", fmt.Sprintf("Solution for %s", event.Title)); err != nil {
		return fmt.Errorf("failed to build document request: %w", err)
	}
	part, err := w.CreateFormFile("document", fmt.Sprintf("%s.%s", event.ProblemKey, langFileExt(event.Language)))
	if err != nil {
		return fmt.Errorf("failed to build document request: %w", err)
	}
	if _, err := part.Write([]byte(event.Detail.Code)); err != nil {
		return fmt.Errorf("failed to build document request: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build document request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.methodURL("sendDocument"), &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return s.do(req)
}

func (s *BotService) methodURL(method string) string {
	return s.baseURL + "/bot" + s.token + "/" + method
}

func (s *BotService) do(req *http.Request) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("telegram API error (status %d): unreadable response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !api.OK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, api.Description)
	}
	return nil
}

// RateLimitedService wraps a Service and paces sends to respect the Bot
// API's flood limit of roughly one message per second per chat. Unlike a
// rejecting limiter, it waits: alerts must not be dropped.
type RateLimitedService struct {
	service Service
	limiter *rate.Limiter
}

// NewRateLimitedService creates a paced wrapper around a Service.
func NewRateLimitedService(service Service) *RateLimitedService {
	return &RateLimitedService{
		service: service,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (s *RateLimitedService) SendSolveAlert(ctx context.Context, event models.SolveEvent) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.service.SendSolveAlert(ctx, event)
}

func (s *RateLimitedService) SendSummary(ctx context.Context, report models.Report, target models.Target) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.service.SendSummary(ctx, report, target)
}

func (s *RateLimitedService) SendSolutionDocument(ctx context.Context, event models.SolveEvent) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.service.SendSolutionDocument(ctx, event)
}

func (s *RateLimitedService) SendText(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.service.SendText(ctx, text)
}

// MockService is a mock implementation for testing.
type MockService struct {
	Alerts     []models.SolveEvent
	Summaries  []models.Report
	Documents  []models.SolveEvent
	Texts      []string
	ShouldFail bool
	FailError  error
}

// NewMockService creates a new mock notification service.
func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) fail() error {
	if m.FailError != nil {
		return m.FailError
	}
	return fmt.Errorf("mock telegram service failure")
}

func (m *MockService) SendSolveAlert(ctx context.Context, event models.SolveEvent) error {
	if m.ShouldFail {
		return m.fail()
	}
	m.Alerts = append(m.Alerts, event)
	return nil
}

func (m *MockService) SendSummary(ctx context.Context, report models.Report, target models.Target) error {
	if m.ShouldFail {
		return m.fail()
	}
	m.Summaries = append(m.Summaries, report)
	return nil
}

func (m *MockService) SendSolutionDocument(ctx context.Context, event models.SolveEvent) error {
	if m.ShouldFail {
		return m.fail()
	}
	m.Documents = append(m.Documents, event)
	return nil
}

func (m *MockService) SendText(ctx context.Context, text string) error {
	if m.ShouldFail {
		return m.fail()
	}
	m.Texts = append(m.Texts, text)
	return nil
}

// Reset clears all recorded sends.
func (m *MockService) Reset() {
	m.Alerts = nil
	m.Summaries = nil
	m.Documents = nil
	m.Texts = nil
	m.ShouldFail = false
	m.FailError = nil
}

package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvewatch/solvewatch/internal/logger"
	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/telegram"
)

// telegramUpdate is the slice of the Bot API Update object the webhook reads.
type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID int64        `json:"message_id"`
	Chat      telegramChat `json:"chat"`
	Text      string       `json:"text"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// handleTelegramWebhook receives Bot API updates and dispatches commands.
// Once the secret matches, the response is always 200: failures are reported
// in-band to the chat, and a non-200 would only make Telegram redeliver the
// same update.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.WebhookSecret)) != 1 {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Ctx(r.Context()).Warn("failed to decode telegram update", "error", err)
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if update.Message != nil {
		s.dispatchCommand(r, *update.Message)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dispatchCommand runs one bot command. Commands are accepted only from the
// configured private chat; anything else is dropped silently.
func (s *Server) dispatchCommand(r *http.Request, msg telegramMessage) {
	log := logger.Ctx(r.Context())

	if msg.Chat.Type != "private" || msg.Chat.ID != s.config.ChatID {
		log.Debug("ignoring telegram message from unexpected chat",
			"chat_id", msg.Chat.ID, "chat_type", msg.Chat.Type)
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return
	}

	// Clients may suffix the bot name: /stats@solvewatch_bot.
	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at != -1 {
		cmd = cmd[:at]
	}

	ctx := r.Context()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("telegram.command", cmd))
	log.Info("telegram command received", "command", cmd)

	switch cmd {
	case "/ping":
		s.reply(ctx, cmd, "Pong!")
	case "/stats":
		s.replySummary(ctx, cmd, models.PeriodDaily)
	case "/wstats":
		s.replySummary(ctx, cmd, models.PeriodWeekly)
	case "/mstats":
		s.replySummary(ctx, cmd, models.PeriodMonthly)
	case "/dset":
		s.setTargetCommand(ctx, cmd, models.PeriodDaily, fields[1:])
	case "/wset":
		s.setTargetCommand(ctx, cmd, models.PeriodWeekly, fields[1:])
	case "/mset":
		s.setTargetCommand(ctx, cmd, models.PeriodMonthly, fields[1:])
	default:
		log.Debug("unknown telegram command", "command", cmd)
	}
}

// reply sends one command response, logging instead of failing the webhook.
func (s *Server) reply(ctx context.Context, cmd, text string) {
	if err := s.notifier.SendText(ctx, text); err != nil {
		logger.Ctx(ctx).Error("failed to send command reply", "command", cmd, "error", err)
	}
}

// replySummary answers a stats command with the formatted period summary.
func (s *Server) replySummary(ctx context.Context, cmd string, period models.Period) {
	log := logger.Ctx(ctx)

	report, err := s.reporter.Report(ctx, period, time.Now().UTC())
	if err != nil {
		log.Error("failed to build report for command", "command", cmd, "error", err)
		s.reply(ctx, cmd, "❌ Failed to fetch stats. Please try again.")
		return
	}

	target, err := s.store.GetTarget(ctx, period)
	if err != nil {
		// The summary is still worth sending without target bars.
		log.Error("failed to load target for command", "command", cmd, "error", err)
		target = models.Target{Period: period}
	}

	s.reply(ctx, cmd, telegram.FormatSummary(report, target))
}

// setTargetCommand parses and stores a /dset-style target command: exactly
// three non-negative integers.
func (s *Server) setTargetCommand(ctx context.Context, cmd string, period models.Period, args []string) {
	if len(args) != 3 {
		s.reply(ctx, cmd, targetUsage(period))
		return
	}

	values := make([]int, 3)
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			s.reply(ctx, cmd, "❌ All arguments must be valid integers.")
			return
		}
		values[i] = n
	}

	if values[0] < 0 || values[1] < 0 || values[2] < 0 {
		s.reply(ctx, cmd, "❌ All target values must be non-negative integers.")
		return
	}

	target := models.Target{
		Period: period,
		Easy:   values[0],
		Medium: values[1],
		Hard:   values[2],
	}
	if err := s.store.SetTarget(ctx, target); err != nil {
		logger.Ctx(ctx).Error("failed to set target from command", "command", cmd, "error", err)
		s.reply(ctx, cmd, fmt.Sprintf("❌ Failed to set %s target. Please try again.", period))
		return
	}

	s.reply(ctx, cmd, telegram.FormatTargetConfirmation(target))
}

func targetUsage(period models.Period) string {
	switch period {
	case models.PeriodWeekly:
		return "❌ *Usage:* `/wset <easy> <medium> <hard>`\n" +
			"Example: `/wset 10 5 2` (10 easy, 5 medium, 2 hard per week)"
	case models.PeriodMonthly:
		return "❌ *Usage:* `/mset <easy> <medium> <hard>`\n" +
			"Example: `/mset 40 20 8` (40 easy, 20 medium, 8 hard per month)"
	default:
		return "❌ *Usage:* `/dset <easy> <medium> <hard>`\n" +
			"Example: `/dset 2 1 0` (2 easy, 1 medium, 0 hard per day)"
	}
}

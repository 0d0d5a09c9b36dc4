package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	// The account timezone must resolve even on scratch containers with no
	// zoneinfo database.
	_ "time/tzdata"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/solvewatch/solvewatch/internal/api"
	"github.com/solvewatch/solvewatch/internal/archive"
	"github.com/solvewatch/solvewatch/internal/codeforces"
	"github.com/solvewatch/solvewatch/internal/db"
	"github.com/solvewatch/solvewatch/internal/ingest"
	"github.com/solvewatch/solvewatch/internal/leetcode"
	"github.com/solvewatch/solvewatch/internal/logger"
	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/ratelimit"
	"github.com/solvewatch/solvewatch/internal/schedule"
	"github.com/solvewatch/solvewatch/internal/stats"
	"github.com/solvewatch/solvewatch/internal/telegram"
)

var version string

func main() {
	// Start pprof debug server if enabled (for memory/CPU profiling)
	if os.Getenv("ENABLE_PPROF") == "true" {
		go startPprofServer()
	}

	// Initialize OpenTelemetry. Configured via env vars: OTEL_SERVICE_NAME,
	// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS.
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		// Non-fatal: continue without tracing if OTEL env vars not set
		logger.Warn("failed to configure OpenTelemetry", "error", err)
	} else {
		defer otelShutdown()
	}

	config := loadConfig()

	// Postgres may still be starting when the watcher boots; retry briefly
	// before treating the DSN as broken.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	database, err := db.ConnectWithRetry(connectCtx, config.DatabaseURL)
	cancelConnect()
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.Conn()); err != nil {
		logger.Fatal("failed to run migrations", "error", err)
	}

	// Notification delivery, paced to the Bot API flood limit.
	notifier := telegram.NewRateLimitedService(
		telegram.NewBotService(config.TelegramToken, config.TelegramChatID))

	// Solution archive (optional)
	var archiveClient *archive.Client
	if config.ArchiveEnabled {
		archiveClient, err = archive.New(config.ArchiveConfig)
		if err != nil {
			logger.Fatal("failed to initialize solution archive", "error", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := archiveClient.EnsureBucket(ctx); err != nil {
			cancel()
			logger.Fatal("failed to prepare archive bucket", "error", err, "bucket", config.ArchiveConfig.Bucket)
		}
		cancel()
		logger.Info("solution archive enabled", "bucket", config.ArchiveConfig.Bucket)
	} else {
		logger.Info("solution archive disabled (S3_ENDPOINT or SOLUTIONS_BUCKET not set)")
	}

	// Platform adapters
	var cfOpts []codeforces.ClientOption
	if config.CodeforcesAPIKey != "" && config.CodeforcesAPISecret != "" {
		cfOpts = append(cfOpts, codeforces.WithCredentials(config.CodeforcesAPIKey, config.CodeforcesAPISecret))
		logger.Info("codeforces API credentials configured")
	}
	cfClient := codeforces.NewClient(config.CodeforcesHandle, cfOpts...)

	var lcOpts []leetcode.ClientOption
	if config.LeetCodeSession != "" && config.LeetCodeCSRFToken != "" {
		lcOpts = append(lcOpts, leetcode.WithSession(config.LeetCodeSession, config.LeetCodeCSRFToken))
		logger.Info("leetcode session configured, submission detail available")
	}
	lcClient := leetcode.NewClient(config.LeetCodeUsername, lcOpts...)

	// One pipeline per platform, sharing the dedup store and notifier.
	cfConfig := ingest.Config{
		Platform:   models.PlatformCodeforces,
		Adapter:    cfClient,
		Cursors:    database,
		Solves:     database,
		Alerter:    notifier,
		FetchLimit: config.CodeforcesFetchLimit,
		Location:   config.Location,
		StatsOnly:  config.StatsOnly,
	}
	lcConfig := ingest.Config{
		Platform:    models.PlatformLeetCode,
		Adapter:     lcClient,
		Cursors:     database,
		Solves:      database,
		Alerter:     notifier,
		FetchLimit:  config.LeetCodeFetchLimit,
		Location:    config.Location,
		StatsOnly:   config.StatsOnly,
		FetchDetail: config.IncludeDetail,
	}
	if archiveClient != nil {
		cfConfig.Archive = archiveClient
		lcConfig.Archive = archiveClient
	}
	cfPipeline := ingest.New(cfConfig)
	lcPipeline := ingest.New(lcConfig)

	aggregator := stats.NewAggregator(database, config.Location)

	// Background jobs: staggered platform syncs plus the scheduled reports.
	runner := schedule.NewRunner()
	runner.AddInterval("codeforces_sync", 10*time.Second, config.PollInterval, func(ctx context.Context) {
		if err := cfPipeline.Sync(ctx); err != nil {
			logger.Error("codeforces sync failed", "error", err)
		}
	})
	runner.AddInterval("leetcode_sync", 20*time.Second, config.PollInterval, func(ctx context.Context) {
		if err := lcPipeline.Sync(ctx); err != nil {
			logger.Error("leetcode sync failed", "error", err)
		}
	})
	reportJob := func(ctx context.Context) {
		sendScheduledReports(ctx, aggregator, database, notifier, config.Location)
	}
	if err := runner.AddDaily("daily_report", config.SummaryTime, config.Location, reportJob); err != nil {
		logger.Fatal("invalid SUMMARY_TIME", "value", config.SummaryTime, "error", err)
	}

	runnerCtx, cancelRunner := context.WithCancel(context.Background())
	defer cancelRunner()
	runner.Start(runnerCtx)

	// HTTP API
	limiter := ratelimit.NewInMemoryRateLimiter(10, 20)
	defer limiter.Stop()

	server := api.NewServer(database, aggregator, notifier, limiter, api.Config{
		AllowedOrigins: config.AllowedOrigins,
		APIToken:       config.APIToken,
		WebhookSecret:  config.WebhookSecret,
		ChatID:         config.TelegramChatID,
	})
	router := server.SetupRoutes()

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "solvewatch")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting watcher", "port", config.Port, "version", version,
			"timezone", config.Location.String(), "poll_interval", config.PollInterval)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down watcher")
	cancelRunner()
	runner.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("watcher stopped")
}

// sendScheduledReports delivers the daily report, plus the weekly report on
// the last day of the week and the monthly report on the last day of the
// month. One period's failure does not block the others.
func sendScheduledReports(ctx context.Context, aggregator *stats.Aggregator, database *db.DB, notifier telegram.Service, loc *time.Location) {
	now := time.Now().In(loc)

	periods := []models.Period{models.PeriodDaily}
	if schedule.IsLastDayOfWeek(now) {
		periods = append(periods, models.PeriodWeekly)
	}
	if schedule.IsLastDayOfMonth(now) {
		periods = append(periods, models.PeriodMonthly)
	}

	for _, period := range periods {
		report, err := aggregator.Report(ctx, period, now)
		if err != nil {
			logger.Error("failed to build scheduled report", "period", period, "error", err)
			continue
		}
		target, err := database.GetTarget(ctx, period)
		if err != nil {
			// An unreadable target must not swallow the report itself.
			logger.Error("failed to load target for report", "period", period, "error", err)
			target = models.Target{Period: period}
		}
		if err := notifier.SendSummary(ctx, report, target); err != nil {
			logger.Error("summary delivery failed", "period", period, "error", err)
		} else {
			logger.Info("summary delivered", "period", period, "total", report.Total)
		}
	}
}

type Config struct {
	Port        int
	DatabaseURL string

	TelegramToken  string
	TelegramChatID int64
	WebhookSecret  string

	APIToken       string
	AllowedOrigins []string

	CodeforcesHandle     string
	CodeforcesAPIKey     string
	CodeforcesAPISecret  string
	CodeforcesFetchLimit int

	LeetCodeUsername   string
	LeetCodeSession    string
	LeetCodeCSRFToken  string
	LeetCodeFetchLimit int

	Location      *time.Location
	PollInterval  time.Duration
	SummaryTime   string
	StatsOnly     bool
	IncludeDetail bool

	ArchiveEnabled bool
	ArchiveConfig  archive.Config
}

func loadConfig() Config {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	// Validate required database configuration
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	// Telegram is the delivery channel; the watcher is useless without it.
	telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if telegramToken == "" {
		logger.Fatal("missing required env var", "var", "TELEGRAM_BOT_TOKEN")
	}

	chatIDRaw := os.Getenv("TELEGRAM_CHAT_ID")
	if chatIDRaw == "" {
		logger.Fatal("missing required env var", "var", "TELEGRAM_CHAT_ID")
	}
	chatID, err := strconv.ParseInt(chatIDRaw, 10, 64)
	if err != nil {
		logger.Fatal("invalid env var", "var", "TELEGRAM_CHAT_ID", "value", chatIDRaw, "hint", "must be an integer chat id")
	}

	// Watched accounts
	cfHandle := os.Getenv("CODEFORCES_HANDLE")
	if cfHandle == "" {
		logger.Fatal("missing required env var", "var", "CODEFORCES_HANDLE")
	}
	lcUsername := os.Getenv("LEETCODE_USERNAME")
	if lcUsername == "" {
		logger.Fatal("missing required env var", "var", "LEETCODE_USERNAME")
	}

	// Calendar math runs in the account's timezone, not the server's.
	tz := os.Getenv("ACCOUNT_TIMEZONE")
	if tz == "" {
		tz = "Asia/Kolkata"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		logger.Fatal("invalid env var", "var", "ACCOUNT_TIMEZONE", "value", tz, "hint", "must be an IANA zone name like Asia/Kolkata")
	}

	pollInterval := 60 * time.Second
	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			logger.Fatal("invalid env var", "var", "POLL_INTERVAL", "value", raw, "hint", "must be a positive duration like 60s")
		}
		pollInterval = parsed
	}

	summaryTime := os.Getenv("SUMMARY_TIME")
	if summaryTime == "" {
		summaryTime = "23:59"
	}

	cfFetchLimit := 10
	if raw := os.Getenv("CODEFORCES_FETCH_LIMIT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			logger.Fatal("invalid env var", "var", "CODEFORCES_FETCH_LIMIT", "value", raw)
		}
		cfFetchLimit = parsed
	}

	lcFetchLimit := 15
	if raw := os.Getenv("LEETCODE_FETCH_LIMIT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			logger.Fatal("invalid env var", "var", "LEETCODE_FETCH_LIMIT", "value", raw)
		}
		lcFetchLimit = parsed
	}

	statsOnly := os.Getenv("STATS_ONLY_MODE") == "true" || os.Getenv("STATS_ONLY_MODE") == "1"
	if statsOnly {
		logger.Info("stats-only mode enabled, per-solve alerts suppressed")
	}

	includeDetail := os.Getenv("INCLUDE_SOLUTION_DETAIL") == "true" || os.Getenv("INCLUDE_SOLUTION_DETAIL") == "1"

	var allowedOrigins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	// Archive is enabled only when the full S3 configuration is present
	s3Endpoint := os.Getenv("S3_ENDPOINT")
	s3AccessKey := os.Getenv("S3_ACCESS_KEY")
	s3SecretKey := os.Getenv("S3_SECRET_KEY")
	bucket := os.Getenv("SOLUTIONS_BUCKET")
	archiveEnabled := s3Endpoint != "" && s3AccessKey != "" && s3SecretKey != "" && bucket != ""

	return Config{
		Port:        port,
		DatabaseURL: databaseURL,

		TelegramToken:  telegramToken,
		TelegramChatID: chatID,
		WebhookSecret:  os.Getenv("TELEGRAM_WEBHOOK_SECRET"),

		APIToken:       os.Getenv("API_TOKEN"),
		AllowedOrigins: allowedOrigins,

		CodeforcesHandle:     cfHandle,
		CodeforcesAPIKey:     os.Getenv("CODEFORCES_API_KEY"),
		CodeforcesAPISecret:  os.Getenv("CODEFORCES_API_SECRET"),
		CodeforcesFetchLimit: cfFetchLimit,

		LeetCodeUsername:   lcUsername,
		LeetCodeSession:    os.Getenv("LEETCODE_SESSION"),
		LeetCodeCSRFToken:  os.Getenv("LEETCODE_CSRF_TOKEN"),
		LeetCodeFetchLimit: lcFetchLimit,

		Location:      location,
		PollInterval:  pollInterval,
		SummaryTime:   summaryTime,
		StatsOnly:     statsOnly,
		IncludeDetail: includeDetail,

		ArchiveEnabled: archiveEnabled,
		ArchiveConfig: archive.Config{
			Endpoint:        s3Endpoint,
			AccessKeyID:     s3AccessKey,
			SecretAccessKey: s3SecretKey,
			Bucket:          bucket,
			UseSSL:          os.Getenv("S3_USE_SSL") != "false", // Default true
		},
	}
}

// startPprofServer starts a pprof debug server on localhost:6060, reachable
// through a port-forward only.
//
// Available endpoints:
//   - /debug/pprof/heap      - heap memory profile
//   - /debug/pprof/goroutine - goroutine stack traces
//   - /debug/pprof/allocs    - allocation profile
//   - /debug/pprof/profile   - CPU profile (30s default)
//   - /debug/pprof/trace     - execution trace
func startPprofServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))
	mux.Handle("/debug/pprof/block", pprof.Handler("block"))
	mux.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))
	mux.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))

	addr := "127.0.0.1:6060"
	logger.Info("pprof debug server starting", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("pprof server failed", "error", err)
	}
}

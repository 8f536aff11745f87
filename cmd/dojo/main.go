package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/config"
	httptransport "github.com/example/dojo-portal/internal/http"
	"github.com/example/dojo-portal/internal/jobs"
	"github.com/example/dojo-portal/internal/notify"
	"github.com/example/dojo-portal/internal/persistence/sqlite"
	"github.com/example/dojo-portal/internal/persistence/sqlite/migration"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Error("failed to configure notifier", "error", err)
		os.Exit(1)
	}

	app, err := newApp(cfg, storage, notifier, time.Now, logger)
	if err != nil {
		logger.Error("failed to assemble application", "error", err)
		os.Exit(1)
	}

	if err := app.scheduler.Start(); err != nil {
		logger.Error("failed to start password sweep", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
		if err := app.scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("password sweep did not stop cleanly", "error", err)
		}
	}()

	logger.Info("dojo portal listening", "addr", server.Addr, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	handler   http.Handler
	scheduler *jobs.Scheduler
}

// newApp wires storage adapters, services and transport into a runnable application.
func newApp(cfg config.Config, storage *sqlite.Storage, notifier application.Notifier, now func() time.Time, logger *slog.Logger) (*app, error) {
	if now == nil {
		now = time.Now
	}
	idGenerator := uuid.NewString

	users := newUserRepositoryAdapter(storage)
	records := newPasswordRecordAdapter(storage, now)
	sessions := newSessionRepositoryAdapter(storage, cfg.SessionSecret)
	events := newEventRepositoryAdapter(storage)

	identity := application.NewLocalIdentity(users, nil, now, logger)
	passwordService := application.NewPasswordServiceWithLogger(records, identity, cfg.PasswordPolicy(), now, logger)
	authService := application.NewAuthServiceWithLogger(users, sessions, passwordService, nil, newSessionToken, now, cfg.SessionTTL, logger)
	accountService := application.NewAccountServiceWithLogger(users, passwordService, nil, idGenerator, now, logger)
	eventService := application.NewEventServiceWithLogger(events, idGenerator, now, logger)
	bookingService := application.NewBookingServiceWithLogger(events, cfg.Location, now, logger)
	sweepService := application.NewSweepServiceWithLogger(records, users, notifier, cfg.ReminderLead(), now, logger)

	scheduler, err := jobs.NewScheduler(sweepService, cfg.SweepSpec, cfg.Location, logger)
	if err != nil {
		return nil, err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, logger),
		Passwords:  httptransport.NewPasswordHandler(passwordService, authService, logger),
		Accounts:   httptransport.NewAccountHandler(accountService, logger),
		Events:     httptransport.NewEventHandler(eventService, bookingService.Today, logger),
		Booking:    httptransport.NewBookingHandler(bookingService, logger),
		Admin:      httptransport.NewAdminHandler(scheduler, logger),
		Session:    httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	return &app{handler: router, scheduler: scheduler}, nil
}

func newNotifier(cfg config.Config, logger *slog.Logger) (application.Notifier, error) {
	if !cfg.Mailgun.Enabled() {
		logger.Warn("mailgun not configured, expiry reminders will only be logged")
		return notify.NewLogNotifier(logger), nil
	}
	return notify.NewMailer(notify.MailgunConfig{
		Domain: cfg.Mailgun.Domain,
		APIKey: cfg.Mailgun.APIKey,
		Sender: cfg.Mailgun.Sender,
	}, logger)
}

// newSessionToken returns 32 random bytes, hex encoded. Only its keyed digest
// is persisted.
func newSessionToken() string {
	return randomHex(32)
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/ai/gemini"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/leads"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/logger"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/notify"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/secrets"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/server"
)

const (
	transportSMTP = "smtp"
	transportSES  = "ses"

	shutdownTimeout = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scholarship finder API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "", "port to listen on (overrides PORT)")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serve(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer appLogger.Sync()

	config, err := getConfig()
	if err != nil {
		appLogger.Fatal("getting a config", zap.Error(err))
	}

	appLogger.Info("starting the scholarship finder", zap.String("version", version))

	// secrets are not part of the dump
	pretty, _ := json.MarshalIndent(redacted(*config), "", "  ")
	appLogger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	matcher, err := newMatcher(ctx, &config.Gemini, appLogger)
	if err != nil {
		appLogger.Fatal("building the matcher", zap.Error(err))
	}

	store := newLeadStore(&config.Leads, appLogger)

	sender, err := newSender(ctx, &config.Notify, appLogger)
	if err != nil {
		appLogger.Fatal("building the notification sender", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(sender, notify.Options{
		From:        notificationFrom(&config.Notify),
		BookingURL:  config.Notify.BookingURL,
		Workers:     config.Notify.Workers,
		QueueSize:   config.Notify.QueueSize,
		SendTimeout: config.Notify.SendTimeout,
	}, logger.WithComponent(appLogger, "notify"))
	dispatcher.Start(context.WithoutCancel(ctx))

	srv, err := server.New(matcher, store, dispatcher, server.Config{
		FrontendURL: config.FrontendURL,
	}, logger.WithComponent(appLogger, "http"))
	if err != nil {
		appLogger.Fatal("building the server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(":" + strings.TrimSpace(config.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		appLogger.Info("shutting down", zap.String("reason", "signal received"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("shutting down the server", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		appLogger.Warn("pending notifications were abandoned", zap.Error(err))
	}

	appLogger.Info("stopped")
}

// newMatcher builds the Gemini matcher. Without an API key every request gets
// the consultation fallback.
func newMatcher(ctx context.Context, cfg *GeminiConfig, base *zap.Logger) (*gemini.Matcher, error) {
	matcherLogger := logger.WithComponent(base, "matcher", logger.AIFields("gemini", cfg.Model)...)

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		if strings.TrimSpace(cfg.APIKeyFile) != "" {
			return nil, err
		}
		matcherLogger.Warn("gemini is disabled, every request will get the consultation result",
			zap.Error(err),
			zap.String("hint", "set GOOGLE_API_KEY or GEMINI_API_KEY_FILE"),
		)
		return gemini.NewMatcher(nil, cfg.MaxLogLength, matcherLogger), nil
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.GeneratorOptions{
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		JSONMode:        cfg.JSONMode,
		SearchGrounding: cfg.SearchGrounding,
		Timeout:         cfg.Timeout,
	}, matcherLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewMatcher(generator, cfg.MaxLogLength, matcherLogger), nil
}

func newLeadStore(cfg *LeadsConfig, base *zap.Logger) *leads.Store {
	leadsLogger := logger.WithComponent(base, "leads")

	if strings.TrimSpace(cfg.WebhookURL) == "" {
		leadsLogger.Warn("lead webhook is not configured, leads are kept in the local backup only",
			zap.String("backup_file", cfg.BackupFile),
		)
	}

	webhook := leads.NewWebhook(cfg.WebhookURL, leadsLogger)
	webhook.UserAgent = fmt.Sprintf("%s/%s", app, version)

	return leads.New(webhook, leads.NewBackup(cfg.BackupFile), leadsLogger)
}

// newSender returns nil when the transport lacks credentials. The dispatcher
// then logs and drops every notification.
func newSender(ctx context.Context, cfg *NotifyConfig, base *zap.Logger) (notify.Sender, error) {
	notifyLogger := logger.WithComponent(base, "notify")

	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case transportSMTP, "":
		password, err := secrets.Optional(secrets.Source{
			Name:  "smtp password",
			Value: cfg.SMTP.Password,
			File:  cfg.SMTP.PasswordFile,
		})
		if err != nil {
			return nil, err
		}

		if cfg.SMTP.Host == "" || cfg.SMTP.User == "" || password == "" {
			notifyLogger.Warn("smtp credentials are not configured, emails will not be sent",
				zap.String("hint", "set SMTP_HOST, SMTP_USER and SMTP_PASSWORD"),
			)
			return nil, nil
		}

		return &notify.SMTPSender{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: password,
		}, nil
	case transportSES:
		if notificationFrom(cfg) == "" {
			return nil, errors.New("notify.from is required for the ses transport")
		}
		sender, err := notify.NewSESSender(ctx, cfg.SES.Region)
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unsupported notification transport: %s", cfg.Transport)
	}
}

func notificationFrom(cfg *NotifyConfig) string {
	if from := strings.TrimSpace(cfg.From); from != "" {
		return from
	}
	return strings.TrimSpace(cfg.SMTP.User)
}

func redacted(config Config) Config {
	if config.Gemini.APIKey != "" {
		config.Gemini.APIKey = "***"
	}
	if config.Notify.SMTP.Password != "" {
		config.Notify.SMTP.Password = "***"
	}
	return config
}

package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/notify"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()

	v := viper.New()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			t.Fatalf("binding %s: %v", key, err)
		}
	}
	setDefaults(v)
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	cfg, err := decodeConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("decodeConfig returned error: %v", err)
	}

	if cfg.Port != "5000" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" || cfg.Gemini.Temperature != 0.3 {
		t.Fatalf("unexpected gemini defaults: %+v", cfg.Gemini)
	}
	if !cfg.Gemini.JSONMode || !cfg.Gemini.SearchGrounding {
		t.Fatalf("json mode and grounding should default to on: %+v", cfg.Gemini)
	}
	if cfg.Gemini.Timeout != 60*time.Second {
		t.Fatalf("unexpected gemini timeout %s", cfg.Gemini.Timeout)
	}
	if cfg.Leads.BackupFile != "data/leads.json" {
		t.Fatalf("unexpected backup file %q", cfg.Leads.BackupFile)
	}
	if cfg.Notify.Transport != transportSMTP || cfg.Notify.SMTP.Port != 587 || cfg.Notify.Workers != 4 {
		t.Fatalf("unexpected notify defaults: %+v", cfg.Notify)
	}
}

func TestDecodeConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GOOGLE_APPS_SCRIPT_URL", "https://script.example.com/exec")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USER", "team@example.com")

	cfg, err := decodeConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("decodeConfig returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if cfg.Gemini.APIKey != "secret" {
		t.Fatalf("api key not bound from GEMINI_API_KEY")
	}
	if cfg.Leads.WebhookURL != "https://script.example.com/exec" {
		t.Fatalf("unexpected webhook url %q", cfg.Leads.WebhookURL)
	}
	if cfg.Notify.SMTP.Port != 465 {
		t.Fatalf("unexpected smtp port %d", cfg.Notify.SMTP.Port)
	}
	if got := notificationFrom(&cfg.Notify); got != "team@example.com" {
		t.Fatalf("sender should default to the smtp user, got %q", got)
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := Config{}
	cfg.Gemini.APIKey = "key"
	cfg.Notify.SMTP.Password = "password"

	out := redacted(cfg)
	if out.Gemini.APIKey != "***" || out.Notify.SMTP.Password != "***" {
		t.Fatalf("secrets leaked: %+v", out)
	}
	if cfg.Gemini.APIKey != "key" {
		t.Fatalf("redacted must not modify its input")
	}
}

func TestNewSender(t *testing.T) {
	ctx := context.Background()

	sender, err := newSender(ctx, &NotifyConfig{Transport: "smtp"}, zap.NewNop())
	if err != nil || sender != nil {
		t.Fatalf("expected no sender without credentials, got %v, %v", sender, err)
	}

	sender, err = newSender(ctx, &NotifyConfig{
		Transport: "SMTP",
		SMTP:      SMTPConfig{Host: "smtp.example.com", Port: 587, User: "team@example.com", Password: "pw"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("newSender returned error: %v", err)
	}
	smtpSender, ok := sender.(*notify.SMTPSender)
	if !ok || smtpSender.Host != "smtp.example.com" || smtpSender.Password != "pw" {
		t.Fatalf("unexpected sender %#v", sender)
	}

	if _, err := newSender(ctx, &NotifyConfig{Transport: "ses"}, zap.NewNop()); err == nil {
		t.Fatalf("expected an error for ses without a from address")
	}

	if _, err := newSender(ctx, &NotifyConfig{Transport: "pigeon"}, zap.NewNop()); err == nil {
		t.Fatalf("expected an error for an unknown transport")
	}
}

func TestNewMatcherWithoutKeyFallsBack(t *testing.T) {
	matcher, err := newMatcher(context.Background(), &GeminiConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("newMatcher returned error: %v", err)
	}
	if matcher == nil {
		t.Fatalf("expected a matcher")
	}

	if _, err := newMatcher(context.Background(), &GeminiConfig{APIKeyFile: "/does/not/exist"}, zap.NewNop()); err == nil {
		t.Fatalf("expected an error for a missing key file")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(out.String(), app+" version: ") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

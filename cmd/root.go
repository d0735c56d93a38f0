package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "scholarship-finder"
)

type Config struct {
	Port        string       `mapstructure:"port"`
	FrontendURL string       `mapstructure:"frontend-url"`
	Gemini      GeminiConfig `mapstructure:"gemini"`
	Leads       LeadsConfig  `mapstructure:"leads"`
	Notify      NotifyConfig `mapstructure:"notify"`
}

type GeminiConfig struct {
	APIKey          string        `mapstructure:"api-key"`
	APIKeyFile      string        `mapstructure:"api-key-file"`
	Model           string        `mapstructure:"model"`
	Temperature     float32       `mapstructure:"temperature"`
	JSONMode        bool          `mapstructure:"json-mode"`
	SearchGrounding bool          `mapstructure:"search-grounding"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
}

type LeadsConfig struct {
	WebhookURL string `mapstructure:"webhook-url"`
	BackupFile string `mapstructure:"backup-file"`
}

type NotifyConfig struct {
	Transport   string        `mapstructure:"transport"`
	From        string        `mapstructure:"from"`
	BookingURL  string        `mapstructure:"booking-url"`
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue-size"`
	SendTimeout time.Duration `mapstructure:"send-timeout"`
	SMTP        SMTPConfig    `mapstructure:"smtp"`
	SES         SESConfig     `mapstructure:"ses"`
}

type SMTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
}

type SESConfig struct {
	Region string `mapstructure:"region"`
}

// envBindings maps config keys to the environment variables of the deployment.
var envBindings = map[string][]string{
	"port":                      {"PORT"},
	"frontend-url":              {"FRONTEND_URL"},
	"gemini.api-key":            {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"gemini.api-key-file":       {"GEMINI_API_KEY_FILE"},
	"gemini.model":              {"GEMINI_MODEL"},
	"leads.webhook-url":         {"GOOGLE_APPS_SCRIPT_URL"},
	"leads.backup-file":         {"LEADS_BACKUP_FILE"},
	"notify.transport":          {"NOTIFY_TRANSPORT"},
	"notify.from":               {"NOTIFY_FROM"},
	"notify.smtp.host":          {"SMTP_HOST"},
	"notify.smtp.port":          {"SMTP_PORT"},
	"notify.smtp.user":          {"SMTP_USER"},
	"notify.smtp.password":      {"SMTP_PASSWORD"},
	"notify.smtp.password-file": {"SMTP_PASSWORD_FILE"},
	"notify.ses.region":         {"AWS_REGION"},
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "scholarship-finder matches student profiles to scholarships and captures leads",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, envs := range envBindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			log.Fatalf("binding %v environment variables: %v", envs, err)
		}
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is scholarship-finder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5000")
	v.SetDefault("frontend-url", "https://scholarship-finder-rouge.vercel.app")

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.json-mode", true)
	v.SetDefault("gemini.search-grounding", true)
	v.SetDefault("gemini.timeout", 60*time.Second)
	v.SetDefault("gemini.max-log-length", 200)

	v.SetDefault("leads.backup-file", "data/leads.json")

	v.SetDefault("notify.transport", "smtp")
	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.queue-size", 100)
	v.SetDefault("notify.send-timeout", 30*time.Second)
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.ses.region", "us-east-1")
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional when everything comes from the environment,
	// but a file that exists and fails to parse is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &config, nil
}

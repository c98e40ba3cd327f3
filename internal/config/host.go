package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Host defaults.
const (
	DefaultListenAddr   = ":8466"
	DefaultPollInterval = 10 * time.Second
	DefaultPollBudget   = 5 * time.Minute

	envPrefix      = "PAGEWRIGHT"
	hostConfigName = ".pagewright"
)

// Host holds process-level settings: credentials, endpoints, and budgets.
// Values resolve from PAGEWRIGHT_* environment variables over an optional
// .pagewright.yaml in the working directory or home directory, over
// defaults.
type Host struct {
	GitHubToken   string
	GitHubBaseURL string

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	PollInterval time.Duration
	PollBudget   time.Duration

	RetryAttempts int
	RetryDelay    time.Duration

	ListenAddr    string
	WebhookSecret string

	OutputDir string
	LogLevel  string
}

// LoadHost resolves the host configuration.
func LoadHost() (*Host, error) {
	v := viper.New()
	v.SetConfigName(hostConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The plain GITHUB_TOKEN that CI environments export works as a
	// fallback for the prefixed variable.
	if err := v.BindEnv("github.token", "PAGEWRIGHT_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	v.SetDefault("github.base_url", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("poll.interval", DefaultPollInterval)
	v.SetDefault("poll.budget", DefaultPollBudget)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 2*time.Second)
	v.SetDefault("server.listen", DefaultListenAddr)
	v.SetDefault("output.dir", ".")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading host config: %w", err)
		}
	}

	return &Host{
		GitHubToken:   v.GetString("github.token"),
		GitHubBaseURL: v.GetString("github.base_url"),
		LLMAPIKey:     v.GetString("llm.api_key"),
		LLMBaseURL:    v.GetString("llm.base_url"),
		LLMModel:      v.GetString("llm.model"),
		PollInterval:  v.GetDuration("poll.interval"),
		PollBudget:    v.GetDuration("poll.budget"),
		RetryAttempts: v.GetInt("retry.attempts"),
		RetryDelay:    v.GetDuration("retry.delay"),
		ListenAddr:    v.GetString("server.listen"),
		WebhookSecret: v.GetString("webhook.secret"),
		OutputDir:     v.GetString("output.dir"),
		LogLevel:      v.GetString("log.level"),
	}, nil
}

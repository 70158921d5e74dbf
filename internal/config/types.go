// Package config loads the claim-intake configuration with Viper.
//
// Values come from, highest priority first:
//  1. Environment variables with the CLAIMS_ prefix (CLAIMS_TEMPORAL_HOST_PORT, ...)
//  2. The file named by CLAIMS_CONFIG_PATH
//  3. ./claims.yaml
//  4. [DefaultConfig]
package config

import (
	"time"

	"claim-intake-service/internal/durable"
)

type Config struct {
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Completion CompletionConfig `mapstructure:"completion"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Steps      StepsConfig      `mapstructure:"steps"`
	API        APIConfig        `mapstructure:"api"`
	Images     ImagesConfig     `mapstructure:"images"`
	Index      IndexConfig      `mapstructure:"index"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// CompletionConfig points at the Azure OpenAI deployment used for structured completions.
type CompletionConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	// IntakeDeployment serves intake and completeness checks.
	IntakeDeployment string `mapstructure:"intake_deployment"`
	// InterviewDeployment serves interview refinement; usually a smaller model.
	InterviewDeployment string `mapstructure:"interview_deployment"`
	MaxOutputTokens     int32  `mapstructure:"max_output_tokens"`
}

type NotifyConfig struct {
	ReviewerURL string        `mapstructure:"reviewer_url"`
	UserURL     string        `mapstructure:"user_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StepsConfig is the retry budget of every durable step.
type StepsConfig struct {
	MaxAttempts     int32         `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	StartToClose    time.Duration `mapstructure:"start_to_close"`
}

func (s StepsConfig) Policy() durable.RetryPolicy {
	p := durable.DefaultRetryPolicy()
	if s.MaxAttempts > 0 {
		p.MaxAttempts = s.MaxAttempts
	}
	if s.InitialInterval > 0 {
		p.InitialInterval = s.InitialInterval
	}
	if s.StartToClose > 0 {
		p.StartToClose = s.StartToClose
	}
	return p
}

type APIConfig struct {
	Listen string `mapstructure:"listen"`
	// PublicURL is where users reach the chat page; it prefixes links printed by the sinks.
	PublicURL string `mapstructure:"public_url"`
}

type ImagesConfig struct {
	Root string `mapstructure:"root"`
}

type IndexConfig struct {
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "CLAIM_INTAKE_TASK_QUEUE",
		},
		Completion: CompletionConfig{
			IntakeDeployment:    "gpt-5-mini",
			InterviewDeployment: "gpt-5-nano",
			MaxOutputTokens:     5000,
		},
		Notify: NotifyConfig{
			ReviewerURL: "http://localhost:55443",
			UserURL:     "http://localhost:55442",
			Timeout:     10 * time.Second,
		},
		Steps: StepsConfig{
			MaxAttempts:     3,
			InitialInterval: time.Second,
			StartToClose:    2 * time.Minute,
		},
		API: APIConfig{
			Listen:    ":8090",
			PublicURL: "http://localhost:8090",
		},
		Images: ImagesConfig{
			Root: ".",
		},
		Index: IndexConfig{
			Path: "data/claims.db",
		},
		Metrics: MetricsConfig{
			Listen: ":9464",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

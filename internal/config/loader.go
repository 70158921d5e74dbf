package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CLAIMS"

// Loader reads configuration through a private Viper instance.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	_ = v.BindEnv("completion.api_key", envPrefix+"_COMPLETION_API_KEY", "AZURE_OPENAI_API_KEY")
	_ = v.BindEnv("completion.endpoint", envPrefix+"_COMPLETION_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
	return &Loader{v: v}
}

// Load reads CLAIMS_CONFIG_PATH, else ./claims.yaml when present, else defaults only.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv(envPrefix + "_CONFIG_PATH"); path != "" {
		return l.LoadFromFile(path)
	}
	if _, err := os.Stat("claims.yaml"); err == nil {
		return l.LoadFromFile("claims.yaml")
	}
	return l.unmarshal()
}

func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every binary needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Temporal.HostPort == "" {
		errs = append(errs, errors.New("temporal.host_port is required"))
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, errors.New("temporal.task_queue is required"))
	}
	if c.Steps.MaxAttempts < 1 {
		errs = append(errs, errors.New("steps.max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("temporal.host_port", d.Temporal.HostPort)
	v.SetDefault("temporal.namespace", d.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", d.Temporal.TaskQueue)
	v.SetDefault("completion.endpoint", d.Completion.Endpoint)
	v.SetDefault("completion.api_key", d.Completion.APIKey)
	v.SetDefault("completion.intake_deployment", d.Completion.IntakeDeployment)
	v.SetDefault("completion.interview_deployment", d.Completion.InterviewDeployment)
	v.SetDefault("completion.max_output_tokens", d.Completion.MaxOutputTokens)
	v.SetDefault("notify.reviewer_url", d.Notify.ReviewerURL)
	v.SetDefault("notify.user_url", d.Notify.UserURL)
	v.SetDefault("notify.timeout", d.Notify.Timeout)
	v.SetDefault("steps.max_attempts", d.Steps.MaxAttempts)
	v.SetDefault("steps.initial_interval", d.Steps.InitialInterval)
	v.SetDefault("steps.start_to_close", d.Steps.StartToClose)
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.public_url", d.API.PublicURL)
	v.SetDefault("images.root", d.Images.Root)
	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

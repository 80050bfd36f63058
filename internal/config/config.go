package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint = "http://localhost:8000/ask"

	EndpointEnv = "RAGFOOD_ENDPOINT"
)

type Config struct {
	AnswerService AnswerServiceConfig `mapstructure:"answer_service" yaml:"answer_service"`
	UI            UIConfig            `mapstructure:"ui" yaml:"ui"`
}

type AnswerServiceConfig struct {
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint" validate:"required,http_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gt=0"`
	RetryAttempts  uint   `mapstructure:"retry_attempts" yaml:"retry_attempts" validate:"lte=10"`
}

// Timeout returns the per-request timeout for the answer service.
func (c AnswerServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type UIConfig struct {
	Title       string `mapstructure:"title" yaml:"title"`
	Placeholder string `mapstructure:"placeholder" yaml:"placeholder"`
	Markdown    bool   `mapstructure:"markdown" yaml:"markdown"`
	Color       bool   `mapstructure:"color" yaml:"color"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
	envFile    string
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ragfood")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
		envFile:    ".env",
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("answer_service.endpoint", DefaultEndpoint)
	v.SetDefault("answer_service.timeout_seconds", 60)
	v.SetDefault("answer_service.retry_attempts", 0)
	v.SetDefault("ui.title", "Ask about Food")
	v.SetDefault("ui.placeholder", "Ask a food question...")
	v.SetDefault("ui.markdown", true)
	v.SetDefault("ui.color", true)

	if err := v.BindEnv("answer_service.endpoint", EndpointEnv); err != nil {
		return nil, fmt.Errorf("failed to bind %s environment variable: %w", EndpointEnv, err)
	}

	// Values in .env behave like environment variables, but a variable that is
	// actually set in the environment wins.
	dotenv, err := loader.readEnvFile()
	if err != nil {
		return nil, err
	}
	if endpoint, ok := dotenv[EndpointEnv]; ok && os.Getenv(EndpointEnv) == "" {
		v.Set("answer_service.endpoint", endpoint)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateEndpoint checks a single answer service URL, e.g. one given on the command line.
func ValidateEndpoint(endpoint string) error {
	if err := validator.New().Var(endpoint, "required,http_url"); err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return nil
}

// Validate checks a configuration, e.g. after command line overrides were applied.
func (loader *ConfigLoader) Validate(cfg *Config) error {
	if err := loader.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("validator.Struct() > %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}
	return nil
}

func (loader *ConfigLoader) readEnvFile() (map[string]string, error) {
	if loader.envFile == "" {
		return nil, nil
	}
	values, err := godotenv.Read(loader.envFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loader.envFile, err)
	}
	return values, nil
}

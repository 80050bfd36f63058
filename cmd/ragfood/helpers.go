package main

import (
	"fmt"

	"github.com/at-ishikawa/ragfood/internal/answer/ragapi"
	"github.com/at-ishikawa/ragfood/internal/config"
	"github.com/at-ishikawa/ragfood/internal/controller"
	"github.com/spf13/pflag"
)

// endpointValue is the --endpoint flag
type endpointValue string

func (e *endpointValue) Set(val string) error {
	if err := config.ValidateEndpoint(val); err != nil {
		return err
	}
	*e = endpointValue(val)
	return nil
}

func (e endpointValue) String() string {
	return string(e)
}

func (e *endpointValue) Type() string {
	return "URL"
}

var _ pflag.Value = (*endpointValue)(nil)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if endpoint != "" {
		cfg.AnswerService.Endpoint = endpoint.String()
		if err := loader.Validate(cfg); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}
	return cfg, nil
}

// newController wires the answer service client into a controller.
// The returned cleanup closes both.
func newController(cfg *config.Config) (*controller.QuestionAnswerController, func()) {
	client := ragapi.NewClient(
		cfg.AnswerService.Endpoint,
		cfg.AnswerService.Timeout(),
		cfg.AnswerService.RetryAttempts,
	)
	qa := controller.New(client)
	return qa, func() {
		qa.Close()
		_ = client.Close()
	}
}

// Package config loads the engine configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/esimpay/solsweep/types"
)

// FromEnv builds a validated configuration from environment variables.
// See the env tags on types.Config for the variable names.
func FromEnv() (*types.Config, error) {
	cfg := &types.Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, &types.Error{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("parsing environment: %v", err),
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"time"
)

// Validate checks that duration fields parse and bounds are sane.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Build.Timeout); err != nil {
		return fmt.Errorf("build.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Test.Timeout); err != nil {
		return fmt.Errorf("test.timeout: %w", err)
	}
	if c.Build.MaxAttempts < 1 {
		return fmt.Errorf("build.max_attempts must be at least 1, got %d", c.Build.MaxAttempts)
	}
	if c.Test.TimeoutMultiplier < 1 {
		return fmt.Errorf("test.timeout_multiplier must be at least 1, got %g", c.Test.TimeoutMultiplier)
	}
	return nil
}

// BuildTimeout returns the parsed build timeout.
func (c *Config) BuildTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Build.Timeout)
	return d
}

// TestTimeout returns the parsed test timeout.
func (c *Config) TestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Test.Timeout)
	return d
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meigma/texpak/pak"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRepack(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateUpdate()
}

func (c *Config) validateRepack() error {
	switch c.Repack.Mode {
	case "patch", "replace":
	default:
		return fmt.Errorf("repack.mode must be \"patch\" or \"replace\", got %q", c.Repack.Mode)
	}
	if c.Repack.Workers < 0 {
		return errors.New("repack.workers must be zero or positive")
	}
	if c.Repack.ThresholdMiB < 0 {
		return errors.New("repack.threshold_mib must be zero or positive")
	}
	if _, ok := pak.ParseCompression(c.Repack.Compression); !ok {
		return fmt.Errorf("repack.compression: unknown value %q", c.Repack.Compression)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateUpdate() error {
	if !c.Update.Enabled {
		return nil
	}
	owner, repo, ok := strings.Cut(c.Update.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("update.repository must be \"owner/name\", got %q", c.Update.Repository)
	}
	if !strings.HasPrefix(c.Update.APIBaseURL, "http://") && !strings.HasPrefix(c.Update.APIBaseURL, "https://") {
		return fmt.Errorf("update.api_base_url must be an http(s) URL, got %q", c.Update.APIBaseURL)
	}
	return nil
}

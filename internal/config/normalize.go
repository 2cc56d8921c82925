package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRepack()
	c.normalizeLogging()
	c.normalizeUpdate()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.GameDir) == "" {
		c.Paths.GameDir = defaultGameDir
	}
	if c.Paths.GameDir, err = expandPath(strings.TrimSpace(c.Paths.GameDir)); err != nil {
		return fmt.Errorf("paths.game_dir: %w", err)
	}
	if c.Paths.FileList, err = expandPath(strings.TrimSpace(c.Paths.FileList)); err != nil {
		return fmt.Errorf("paths.file_list: %w", err)
	}
	return nil
}

func (c *Config) normalizeRepack() {
	c.Repack.Mode = strings.ToLower(strings.TrimSpace(c.Repack.Mode))
	if c.Repack.Mode == "" {
		c.Repack.Mode = defaultMode
	}
	c.Repack.Compression = strings.ToLower(strings.TrimSpace(c.Repack.Compression))
	if c.Repack.Compression == "" {
		c.Repack.Compression = defaultCompression
	}
	c.Repack.TargetSuffix = strings.TrimSpace(c.Repack.TargetSuffix)
	if c.Repack.TargetSuffix == "" {
		c.Repack.TargetSuffix = defaultTargetSuffix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeUpdate() {
	c.Update.Repository = strings.Trim(strings.TrimSpace(c.Update.Repository), "/")
	c.Update.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Update.APIBaseURL), "/")
	if c.Update.APIBaseURL == "" {
		c.Update.APIBaseURL = defaultAPIBaseURL
	}
	if c.Update.TimeoutSeconds <= 0 {
		c.Update.TimeoutSeconds = defaultTimeout
	}
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/meigma/texpak/internal/config"
	"github.com/meigma/texpak/internal/filelist"
	"github.com/meigma/texpak/internal/logging"
	"github.com/meigma/texpak/pak"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			if _, err := logging.ParseLevel(*c.logLevelFlag); err != nil {
				c.configErr = err
				return
			}
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// outputCompression maps repack.compression to a container compression.
func outputCompression(cfg *config.Config) (pak.Compression, error) {
	comp, ok := pak.ParseCompression(cfg.Repack.Compression)
	if !ok {
		return 0, fmt.Errorf("repack.compression: unknown value %q", cfg.Repack.Compression)
	}
	return comp, nil
}

// logger builds the command logger writing to w.
func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, w)
}

// fileList loads the name list named by override or the configuration.
func (c *commandContext) fileList(override string) (*filelist.Table, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.Paths.FileList
	if strings.TrimSpace(override) != "" {
		if path, err = config.ExpandPath(override); err != nil {
			return nil, err
		}
	}
	if path == "" {
		return nil, fmt.Errorf("no file list configured; set paths.file_list or pass --file-list")
	}
	table, err := filelist.LoadFile(path, filelist.WithTargetSuffix(cfg.Repack.TargetSuffix))
	if err != nil {
		return nil, fmt.Errorf("load file list: %w", err)
	}
	return table, nil
}

// gameDir resolves the --dir flag against the configured game directory.
func (c *commandContext) gameDir(flag string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(flag) == "" {
		return cfg.Paths.GameDir, nil
	}
	return config.ExpandPath(flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package config

const (
	defaultGameDir      = "."
	defaultFileList     = "~/.config/texpak/MHWs_STM_Release.list.zst"
	defaultMode         = "patch"
	defaultThresholdMiB = 50
	defaultCompression  = "none"
	defaultTargetSuffix = ".tex.241106027"
	defaultLogFormat    = "text"
	defaultLogLevel     = "info"
	defaultRepository   = "meigma/texpak"
	defaultAPIBaseURL   = "https://api.github.com"
	defaultTimeout      = 10
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			GameDir:  defaultGameDir,
			FileList: defaultFileList,
		},
		Repack: Repack{
			Mode:            defaultMode,
			ThresholdMiB:    defaultThresholdMiB,
			Compression:     defaultCompression,
			CloneAttributes: true,
			TargetSuffix:    defaultTargetSuffix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Update: Update{
			Enabled:        true,
			Repository:     defaultRepository,
			APIBaseURL:     defaultAPIBaseURL,
			TimeoutSeconds: defaultTimeout,
		},
	}
}

package config

const (
	defaultConfigPath           = "~/.config/palette/config.toml"
	defaultStateDir             = "~/.local/share/palette"
	defaultLogDir               = "~/.local/share/palette/logs"
	defaultReportDir            = "~/.local/share/palette/reports"
	defaultImmichTag            = "Watercolor"
	defaultImmichPageSize       = 1000
	defaultImmichRequestTimeout = 30
	defaultDedupInternalPrefix  = "/data/upload"
	defaultClassifierURL        = "http://127.0.0.1:8765/classify"
	defaultImageThreshold       = 0.85
	defaultMinFrames            = 3
	defaultDetectionThreshold   = 0.3
	defaultClassifierTimeout    = 120
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			ReportDir: defaultReportDir,
		},
		Immich: Immich{
			Tag:            defaultImmichTag,
			PageSize:       defaultImmichPageSize,
			RequestTimeout: defaultImmichRequestTimeout,
		},
		Move: Move{
			Tag: defaultImmichTag,
		},
		Dedup: Dedup{
			InternalPrefix: defaultDedupInternalPrefix,
		},
		Classifier: Classifier{
			URL:                defaultClassifierURL,
			ImageThreshold:     defaultImageThreshold,
			MinFrames:          defaultMinFrames,
			DetectionThreshold: defaultDetectionThreshold,
			TimeoutSeconds:     defaultClassifierTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

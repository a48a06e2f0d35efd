package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImmich()
	if err := c.normalizePathMappings(); err != nil {
		return err
	}
	if err := c.normalizeMove(); err != nil {
		return err
	}
	c.normalizeDedup()
	c.normalizeClassifier()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeImmich() {
	if c.Immich.URL == "" {
		if value, ok := os.LookupEnv("IMMICH_URL"); ok {
			c.Immich.URL = value
		}
	}
	if c.Immich.APIKey == "" {
		if value, ok := os.LookupEnv("IMMICH_API_KEY"); ok {
			c.Immich.APIKey = value
		}
	}
	if value, ok := os.LookupEnv("IMMICH_TAG"); ok && strings.TrimSpace(value) != "" && c.Immich.Tag == defaultImmichTag {
		c.Immich.Tag = value
	}
	c.Immich.URL = strings.TrimRight(strings.TrimSpace(c.Immich.URL), "/")
	c.Immich.APIKey = strings.TrimSpace(c.Immich.APIKey)
	c.Immich.Tag = strings.TrimSpace(c.Immich.Tag)
	if c.Immich.Tag == "" {
		c.Immich.Tag = defaultImmichTag
	}
	if c.Immich.PageSize <= 0 {
		c.Immich.PageSize = defaultImmichPageSize
	}
	if c.Immich.RequestTimeout <= 0 {
		c.Immich.RequestTimeout = defaultImmichRequestTimeout
	}
}

func (c *Config) normalizePathMappings() error {
	if len(c.PathMappings) == 0 {
		if value, ok := os.LookupEnv("IMMICH_PATH_MAPPING"); ok && strings.TrimSpace(value) != "" {
			mappings, err := ParseMappingSpec(value)
			if err != nil {
				return fmt.Errorf("IMMICH_PATH_MAPPING: %w", err)
			}
			c.PathMappings = mappings
		}
	}
	for i := range c.PathMappings {
		c.PathMappings[i].Local = strings.TrimSpace(c.PathMappings[i].Local)
		c.PathMappings[i].Remote = strings.TrimSpace(c.PathMappings[i].Remote)
	}
	return nil
}

func (c *Config) normalizeMove() error {
	if c.Move.DestinationRoot == "" {
		if value, ok := os.LookupEnv("MOVE_DESTINATION_ROOT"); ok {
			c.Move.DestinationRoot = value
		}
	}
	if value, ok := os.LookupEnv("MOVE_DRY_RUN"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("MOVE_DRY_RUN: %w", err)
		}
		c.Move.DryRun = c.Move.DryRun || parsed
	}
	if value, ok := os.LookupEnv("MOVE_SKIP_CONFIRMATION"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("MOVE_SKIP_CONFIRMATION: %w", err)
		}
		c.Move.SkipConfirmation = c.Move.SkipConfirmation || parsed
	}
	if strings.TrimSpace(c.Move.DestinationRoot) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Move.DestinationRoot))
		if err != nil {
			return fmt.Errorf("move.destination_root: %w", err)
		}
		c.Move.DestinationRoot = expanded
	}
	c.Move.Tag = strings.TrimSpace(c.Move.Tag)
	if c.Move.Tag == "" {
		c.Move.Tag = c.Immich.Tag
	}
	return nil
}

func (c *Config) normalizeDedup() {
	c.Dedup.InternalPrefix = strings.TrimSpace(c.Dedup.InternalPrefix)
	c.Dedup.LibraryPrefix = strings.TrimSpace(c.Dedup.LibraryPrefix)
	if c.Dedup.InternalPrefix == "" {
		c.Dedup.InternalPrefix = defaultDedupInternalPrefix
	}
}

func (c *Config) normalizeClassifier() {
	c.Classifier.URL = strings.TrimSpace(c.Classifier.URL)
	if c.Classifier.URL == "" {
		c.Classifier.URL = defaultClassifierURL
	}
	if c.Classifier.MinFrames <= 0 {
		c.Classifier.MinFrames = defaultMinFrames
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = defaultClassifierTimeout
	}
	c.Classifier.FFprobeBinary = strings.TrimSpace(c.Classifier.FFprobeBinary)
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

package config

import (
	"errors"
	"fmt"
	"strings"

	"palette/internal/fileutil"
	"palette/internal/services"
)

// Validate ensures the configuration is usable. Requirements that only matter to
// one command (remote credentials, the move destination) are checked by
// ValidateRemote and ValidateMove instead.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validatePathMappings(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	return nil
}

// ValidateRemote reports whether the remote asset server is configured.
func (c *Config) ValidateRemote() error {
	if c.Immich.URL == "" || c.Immich.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("%w: immich.url and immich.api_key are required. Set IMMICH_URL/IMMICH_API_KEY or edit %s (create with 'palette config init')",
			services.ErrConfiguration, defaultPath)
	}
	return nil
}

// ValidateMove reports whether the move command has everything it needs
// before any asset is touched.
func (c *Config) ValidateMove() error {
	if err := c.ValidateRemote(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Move.DestinationRoot) == "" {
		return fmt.Errorf("%w: move.destination_root must be set (or MOVE_DESTINATION_ROOT)", services.ErrConfiguration)
	}
	if len(c.PathMappings) == 0 {
		return fmt.Errorf("%w: at least one [[path_mappings]] entry is required to move assets", services.ErrConfiguration)
	}
	for i, mapping := range c.PathMappings {
		if fileutil.Within(mapping.Local, c.Move.DestinationRoot) {
			return fmt.Errorf("%w: move.destination_root %s must be outside path_mappings[%d].local %s",
				services.ErrConfiguration, c.Move.DestinationRoot, i, mapping.Local)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validatePathMappings() error {
	for i, mapping := range c.PathMappings {
		if mapping.Local == "" || mapping.Remote == "" {
			return fmt.Errorf("path_mappings[%d]: local and remote must both be set", i)
		}
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.ImageThreshold < 0 || c.Classifier.ImageThreshold > 1 {
		return errors.New("classifier.image_threshold must be between 0 and 1")
	}
	if c.Classifier.DetectionThreshold < 0 || c.Classifier.DetectionThreshold > 1 {
		return errors.New("classifier.detection_threshold must be between 0 and 1")
	}
	return nil
}

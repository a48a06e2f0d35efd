package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for local state and artifacts.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	ReportDir string `toml:"report_dir"`
}

// Immich contains connection settings for the remote asset server.
type Immich struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Tag            string `toml:"tag"`
	PageSize       int    `toml:"page_size"`
	RequestTimeout int    `toml:"request_timeout"`
}

// PathMapping pairs a local directory prefix with the path prefix the remote
// server reports for the same files.
type PathMapping struct {
	Local  string `toml:"local"`
	Remote string `toml:"remote"`
}

// Move contains configuration for relocating tagged assets off the server.
type Move struct {
	DestinationRoot  string `toml:"destination_root"`
	Tag              string `toml:"tag"`
	DryRun           bool   `toml:"dry_run"`
	SkipConfirmation bool   `toml:"skip_confirmation"`
}

// Dedup contains the path prefixes used to rank duplicate survivors.
type Dedup struct {
	InternalPrefix string `toml:"internal_prefix"`
	LibraryPrefix  string `toml:"library_prefix"`
}

// Classifier contains settings for the external classification service.
type Classifier struct {
	URL                string  `toml:"url"`
	ImageThreshold     float64 `toml:"image_threshold"`
	MinFrames          int     `toml:"min_frames"`
	DetectionThreshold float64 `toml:"detection_threshold"`
	StrictMode         bool    `toml:"strict_mode"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	FFprobeBinary      string  `toml:"ffprobe_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for palette.
//
// Configuration sections by subsystem:
//   - Paths: result cache, logs, and report output directories
//   - Immich: remote asset server connection and classification tag
//   - PathMappings: local <-> remote path prefix pairs, matched in order
//   - Move: destination root and safety switches for the move command
//   - Dedup: tier prefixes for duplicate resolution
//   - Classifier: external classifier endpoint and thresholds
//   - Logging: log format and level
type Config struct {
	Paths        Paths         `toml:"paths"`
	Immich       Immich        `toml:"immich"`
	PathMappings []PathMapping `toml:"path_mappings"`
	Move         Move          `toml:"move"`
	Dedup        Dedup         `toml:"dedup"`
	Classifier   Classifier    `toml:"classifier"`
	Logging      Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory or next to
// the config file is loaded first so environment fallbacks can come from it.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("palette.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func loadDotEnv(configDir string) error {
	candidates := []string{".env"}
	if configDir != "" && configDir != "." {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		// godotenv.Load never overrides variables already set in the process.
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

// EnsureDirectories creates the directories palette writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.ReportDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CacheDBPath returns the location of the classification result cache.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.Paths.StateDir, "classification_cache.db")
}

// FFprobeBinary returns the ffprobe executable used for video inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Classifier.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ParseMappingSpec parses the compact "local:remote;local2:remote2" form used by
// IMMICH_PATH_MAPPING and the --path-mapping flag. Each entry is split on its
// last colon so Windows drive letters survive on the local side.
func ParseMappingSpec(spec string) ([]PathMapping, error) {
	var mappings []PathMapping
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idx := strings.LastIndex(entry, ":")
		if idx <= 0 || idx == len(entry)-1 {
			return nil, fmt.Errorf("path mapping %q: expected local:remote", entry)
		}
		local := strings.TrimSpace(entry[:idx])
		remote := strings.TrimSpace(entry[idx+1:])
		if local == "" || remote == "" {
			return nil, fmt.Errorf("path mapping %q: expected local:remote", entry)
		}
		mappings = append(mappings, PathMapping{Local: local, Remote: remote})
	}
	return mappings, nil
}

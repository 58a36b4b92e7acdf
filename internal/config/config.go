// =============================================================================
// Sienge Budget Normalizer - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the layout profiles
// that describe where each field lives in a given family of budget
// spreadsheets.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Layout Profiles (profiles/*.yaml): Column mappings per spreadsheet layout
//
// ENVIRONMENT:
//   After the YAML is read, an optional .env file is loaded and NORMALIZER_*
//   variables override the scalar settings of the main config.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoProfile is returned when a requested layout profile does not exist.
var ErrNoProfile = errors.New("layout profile not found")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for budget spreadsheets to normalize.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where normalized workbooks are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every normalized workbook.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ProfilesDir contains the layout profile files.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the output file name.
	// Placeholders:
	//   {original}  - Input file name without extension
	//   {profile}   - Layout profile code
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	// Default: "{original}_sienge_{timestamp}.xlsx"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files normalized at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps the output of a file even when verification
	// reports error-severity findings.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// KeepInput leaves input files in place instead of moving them to the
	// input archive after success.
	KeepInput bool `yaml:"keep_input"`

	// HistoryDB is the sqlite file that records processed runs.
	// Default: "./data/history.db"
	HistoryDB string `yaml:"history_db"`

	// Server holds the upload service settings.
	Server ServerConfig `yaml:"server"`

	// DefaultColumns is the column mapping used when no profile matches.
	DefaultColumns ColumnSpec `yaml:"default_columns"`
}

// ServerConfig holds the upload service settings.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadMB caps multipart uploads. Default: 32
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

// ShouldContinueOnError reports the effective continue_on_error value.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// =============================================================================
// LAYOUT PROFILE STRUCTURE
// =============================================================================

// Profile describes one family of budget spreadsheets: which files it applies
// to, which sheet to read and where every field lives.
type Profile struct {
	// ProfileName is the human-readable name used in logs.
	ProfileName string `yaml:"profile_name"`

	// ProfileCode is a short code used in output file names and CLI flags.
	ProfileCode string `yaml:"profile_code"`

	// FileMatchingPatterns is a list of glob patterns matched against the
	// input file name, e.g. "planilha_camil*.xlsx".
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// SheetName selects the worksheet. Empty means the first sheet.
	SheetName string `yaml:"sheet_name"`

	// Columns locates each field.
	Columns ColumnSpec `yaml:"columns"`

	// CSVSettings applies when the input file is a CSV export.
	CSVSettings CSVSettings `yaml:"csv_settings"`
}

// CSVSettings contains settings for reading CSV exports of a budget.
type CSVSettings struct {
	// Delimiter separates fields. Default: ";"
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the file.
	// Supported: "UTF-8", "ISO-8859-1", "Windows-1252". Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// A missing file is not an error: the defaults are used. Environment
// variables (and an optional .env file) are applied after the YAML.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	_ = godotenv.Load()
	applyEnvOverrides(&config)

	applyMainConfigDefaults(&config)

	if _, err := config.DefaultColumns.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid default_columns: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides replaces scalar settings with NORMALIZER_* variables.
func applyEnvOverrides(config *MainConfig) {
	config.InputDir = getEnv("NORMALIZER_INPUT_DIR", config.InputDir)
	config.OutputDir = getEnv("NORMALIZER_OUTPUT_DIR", config.OutputDir)
	config.InputArchiveDir = getEnv("NORMALIZER_INPUT_ARCHIVE_DIR", config.InputArchiveDir)
	config.OutputArchiveDir = getEnv("NORMALIZER_OUTPUT_ARCHIVE_DIR", config.OutputArchiveDir)
	config.ProfilesDir = getEnv("NORMALIZER_PROFILES_DIR", config.ProfilesDir)
	config.LogLevel = getEnv("NORMALIZER_LOG_LEVEL", config.LogLevel)
	config.OutputNameFormat = getEnv("NORMALIZER_OUTPUT_NAME_FORMAT", config.OutputNameFormat)
	config.MaxConcurrency = getEnvInt("NORMALIZER_MAX_CONCURRENCY", config.MaxConcurrency)
	config.KeepInput = getEnvBool("NORMALIZER_KEEP_INPUT", config.KeepInput)
	config.HistoryDB = getEnv("NORMALIZER_HISTORY_DB", config.HistoryDB)
	config.Server.Addr = getEnv("NORMALIZER_SERVER_ADDR", config.Server.Addr)

	if _, ok := os.LookupEnv("NORMALIZER_CONTINUE_ON_ERROR"); ok {
		v := getEnvBool("NORMALIZER_CONTINUE_ON_ERROR", config.ShouldContinueOnError())
		config.ContinueOnError = &v
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{original}_sienge_{timestamp}.xlsx"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.HistoryDB == "" {
		config.HistoryDB = "./data/history.db"
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxUploadMB <= 0 {
		config.Server.MaxUploadMB = 32
	}
	config.DefaultColumns.applyDefaults()
}

// EnsureDirectories creates the working directories used by the process
// command if they don't exist.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{
		c.InputDir,
		c.OutputDir,
		c.InputArchiveDir,
		c.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DefaultProfile is the profile used when no layout profile matches a file.
func (c *MainConfig) DefaultProfile() *Profile {
	p := &Profile{
		ProfileName: "Default layout",
		ProfileCode: "default",
		Columns:     c.DefaultColumns,
	}
	applyProfileDefaults(p)
	return p
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfiles loads all layout profiles from a directory, keyed by profile
// code (or file name when the code is empty). A missing directory yields an
// empty map.
func LoadProfiles(profilesDir string) (map[string]*Profile, error) {
	profiles := make(map[string]*Profile)

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := profile.ProfileCode
		if key == "" {
			key = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			profile.ProfileCode = key
		}

		profiles[key] = profile
	}

	return profiles, nil
}

// loadProfile loads a single layout profile file.
func loadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyProfileDefaults(&profile)

	if _, err := profile.Columns.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid columns: %w", err)
	}

	return &profile, nil
}

// applyProfileDefaults sets default values for a layout profile.
func applyProfileDefaults(profile *Profile) {
	profile.Columns.applyDefaults()

	if profile.CSVSettings.Delimiter == "" {
		profile.CSVSettings.Delimiter = ";"
	}
	if profile.CSVSettings.Encoding == "" {
		profile.CSVSettings.Encoding = "UTF-8"
	}
}

// MatchProfile returns the first profile whose file patterns match the base
// name of filePath, or nil. Profiles are tried in profile code order.
func MatchProfile(filePath string, profiles map[string]*Profile) *Profile {
	fileName := filepath.Base(filePath)

	for _, code := range slices.Sorted(maps.Keys(profiles)) {
		profile := profiles[code]
		for _, pattern := range profile.FileMatchingPatterns {
			matched, err := filepath.Match(pattern, fileName)
			if err != nil {
				continue
			}
			if matched {
				return profile
			}
		}
	}

	return nil
}

// SelectProfile picks the profile for a file: the explicitly requested code
// when given, otherwise the first pattern match, otherwise the default.
func SelectProfile(filePath, code string, profiles map[string]*Profile, main *MainConfig) (*Profile, error) {
	if code != "" {
		if code == "default" {
			return main.DefaultProfile(), nil
		}
		p, ok := profiles[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoProfile, code)
		}
		return p, nil
	}
	if p := MatchProfile(filePath, profiles); p != nil {
		return p, nil
	}
	return main.DefaultProfile(), nil
}

// =============================================================================
// ENVIRONMENT HELPERS
// =============================================================================

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

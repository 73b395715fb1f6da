// Package config builds the client configuration once at startup. Values are
// layered in this order, later ones winning: built-in defaults, the YAML
// config file, a .env file, RNATIVE_* environment variables and finally the
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/rnative/rnative-client/sdk/common"
	"github.com/rnative/rnative-client/sdk/models"
)

// Defines the wire forms of the MolProbity filter
const (
	MolProbityFormatEnum    = "enum"
	MolProbityFormatBoolean = "boolean"
)

// HistoryDisabled turns the local history off when used as history driver
const HistoryDisabled = "none"

// Defaults of the tunables
const (
	DefaultPollInterval   = 5 * time.Second
	DefaultRequestTimeout = 60 * time.Second
	DefaultRetries        = 2
	DefaultRetryDelay     = time.Second
	DefaultConcurrency    = 4
)

// Config enumerates every recognized option
type Config struct {
	BaseURL string `yaml:"base_url"`

	Analyzer          models.Analyzer          `yaml:"analyzer"`
	VisualizationTool models.VisualizationTool `yaml:"visualization"`
	ConsensusMode     models.ConsensusMode     `yaml:"consensus_mode"`
	ConfidenceLevel   *float64                 `yaml:"confidence"`
	MolProbityFilter  models.MolProbityFilter  `yaml:"molprobity_filter"`
	MolProbityFormat  string                   `yaml:"molprobity_format"`

	PollInterval   time.Duration `yaml:"poll_interval"`
	WaitTimeout    time.Duration `yaml:"wait_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Retries        int           `yaml:"retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	Concurrency    int           `yaml:"concurrency"`

	VisualizationPath string `yaml:"visualization_path"`

	HistoryDriver string `yaml:"history_driver"`
	HistoryDSN    string `yaml:"history_dsn"`

	BrokerURL   string `yaml:"broker_url"`
	BrokerQueue string `yaml:"broker_queue"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is overridden. The
// confidence level is unset, which selects fuzzy thresholding.
func Default() *Config {
	return &Config{
		BaseURL:           common.DefaultBaseURL(),
		Analyzer:          models.AnalyzerBPNet,
		VisualizationTool: models.VisualizationVARNA,
		ConsensusMode:     models.ConsensusCanonical,
		MolProbityFilter:  models.MolProbityAll,
		MolProbityFormat:  MolProbityFormatEnum,
		PollInterval:      DefaultPollInterval,
		RequestTimeout:    DefaultRequestTimeout,
		Retries:           DefaultRetries,
		RetryDelay:        DefaultRetryDelay,
		Concurrency:       DefaultConcurrency,
		VisualizationPath: common.PathVisualization,
		HistoryDriver:     common.HistoryDriverSQLite,
		HistoryDSN:        common.DefaultHistoryPath(),
		BrokerQueue:       common.DefaultBrokerQueue,
		LogLevel:          logrus.InfoLevel.String(),
		LogFormat:         common.LogFormatText,
	}
}

// LoadOptions tells Load where to look
type LoadOptions struct {
	// ConfigPath is an explicit YAML file; it must exist when set
	ConfigPath string

	// DotEnvPath is the .env file loaded into the process environment when present
	DotEnvPath string

	// LookupEnv reads environment variables; os.LookupEnv when nil
	LookupEnv func(string) (string, bool)
}

// Load layers defaults, the config file, the .env file and the environment.
// Flags are applied afterwards with ApplyFlags. The result is not validated.
func Load(opts LoadOptions) (*Config, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if opts.DotEnvPath != "" {
		if err := LoadDotEnv(opts.DotEnvPath); err != nil {
			return nil, err
		}
	}

	cfg := Default()

	path, required := opts.ConfigPath, true
	if path == "" {
		if p, ok := lookup(common.EnvKeyConfigPath); ok && p != "" {
			path = p
		} else {
			path, required = common.DefaultConfigPath(), false
		}
	}
	if err := cfg.LoadFile(path, required); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads the .env file into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("unable to load %s: %w", path, err)
	}

	logrus.Debugf("Loaded environment from %s.", path)
	return nil
}

// LoadFile overlays the YAML file on the configuration. A missing file is an
// error only when required is set.
func (c *Config) LoadFile(path string, required bool) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	if err := yaml.UnmarshalStrict(content, c); err != nil {
		return fmt.Errorf("unable to parse config file %s: %w", path, err)
	}

	logrus.Debugf("Loaded configuration from %s.", path)
	return nil
}

// ApplyEnv overlays the RNATIVE_* variables on the configuration.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get(common.EnvKeyBaseURL); ok {
		c.BaseURL = v
	}
	if v, ok := get(common.EnvKeyAnalyzer); ok {
		c.Analyzer = models.Analyzer(v)
	}
	if v, ok := get(common.EnvKeyVisualization); ok {
		c.VisualizationTool = models.VisualizationTool(v)
	}
	if v, ok := get(common.EnvKeyConsensusMode); ok {
		c.ConsensusMode = models.ConsensusMode(v)
	}
	if v, ok := get(common.EnvKeyConfidence); ok {
		confidence, err := ParseConfidence(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyConfidence, err)
		}
		c.ConfidenceLevel = confidence
	}
	if v, ok := get(common.EnvKeyMolProbityFilter); ok {
		c.MolProbityFilter = models.MolProbityFilter(v)
	}
	if v, ok := get(common.EnvKeyMolProbityFormat); ok {
		c.MolProbityFormat = v
	}
	if v, ok := get(common.EnvKeyPollInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyPollInterval, err)
		}
		c.PollInterval = d
	}
	if v, ok := get(common.EnvKeyWaitTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyWaitTimeout, err)
		}
		c.WaitTimeout = d
	}
	if v, ok := get(common.EnvKeyRequestTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyRequestTimeout, err)
		}
		c.RequestTimeout = d
	}
	if v, ok := get(common.EnvKeyRetries); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyRetries, err)
		}
		c.Retries = n
	}
	if v, ok := get(common.EnvKeyRetryDelay); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyRetryDelay, err)
		}
		c.RetryDelay = d
	}
	if v, ok := get(common.EnvKeyVisualizationPath); ok {
		c.VisualizationPath = v
	}
	if v, ok := get(common.EnvKeyConcurrency); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyConcurrency, err)
		}
		c.Concurrency = n
	}
	if v, ok := get(common.EnvKeyHistoryDriver); ok {
		c.HistoryDriver = v
	}
	if v, ok := get(common.EnvKeyHistoryDSN); ok {
		c.HistoryDSN = v
	}
	if v, ok := get(common.EnvKeyBrokerURL); ok {
		c.BrokerURL = v
	}
	if v, ok := get(common.EnvKeyBrokerQueue); ok {
		c.BrokerQueue = v
	}
	if v, ok := get(common.EnvKeyLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := get(common.EnvKeyLogFormat); ok {
		c.LogFormat = v
	}

	return nil
}

// ParseConfidence parses a confidence level. "fuzzy" and "none" select fuzzy
// thresholding and yield nil.
func ParseConfidence(s string) (*float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fuzzy", "none":
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("confidence must be a number or \"fuzzy\": %q", s)
	}
	return &v, nil
}

// Validate checks every option and normalizes enum names to their canonical
// upper-case form.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: expected http(s)://host[:port]/api/compute", c.BaseURL)
	}

	if c.Analyzer, err = models.ParseAnalyzer(string(c.Analyzer)); err != nil {
		return err
	}
	if c.VisualizationTool, err = models.ParseVisualizationTool(string(c.VisualizationTool)); err != nil {
		return err
	}
	if c.ConsensusMode, err = models.ParseConsensusMode(string(c.ConsensusMode)); err != nil {
		return err
	}
	if c.MolProbityFilter, err = models.ParseMolProbityFilter(string(c.MolProbityFilter)); err != nil {
		return err
	}
	if err := models.CheckConfidence(c.ConfidenceLevel); err != nil {
		return err
	}

	switch c.MolProbityFormat = strings.ToLower(c.MolProbityFormat); c.MolProbityFormat {
	case MolProbityFormatEnum, MolProbityFormatBoolean:
	default:
		return fmt.Errorf("unknown MolProbity format %q (expected %s or %s)", c.MolProbityFormat, MolProbityFormatEnum, MolProbityFormatBoolean)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.WaitTimeout < 0 {
		return fmt.Errorf("wait timeout must not be negative, got %s", c.WaitTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.VisualizationPath == "" {
		return errors.New("visualization path must not be empty")
	}

	switch c.HistoryDriver {
	case HistoryDisabled:
	case common.HistoryDriverSQLite, common.HistoryDriverPQ:
		if c.HistoryDSN == "" {
			return fmt.Errorf("history driver %s needs a DSN", c.HistoryDriver)
		}
	default:
		return fmt.Errorf("unknown history driver %q (expected %s, %s or %s)", c.HistoryDriver, common.HistoryDriverSQLite, common.HistoryDriverPQ, HistoryDisabled)
	}

	if c.BrokerURL != "" {
		if u, err := url.Parse(c.BrokerURL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			return errors.New("invalid broker URL: expected amqp(s)://...")
		}
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case common.LogFormatText, common.LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	return nil
}

// BooleanMolProbityFilter reports whether the filter goes on the wire as a
// boolean.
func (c *Config) BooleanMolProbityFilter() bool {
	return c.MolProbityFormat == MolProbityFormatBoolean
}

// HistoryEnabled reports whether submitted tasks are recorded locally.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDriver != HistoryDisabled
}

// NewSubmission builds a request from the configured analysis settings.
func (c *Config) NewSubmission(files []models.FileData, dotBracket string) *models.SubmissionRequest {
	return &models.SubmissionRequest{
		Files:             files,
		Analyzer:          c.Analyzer,
		VisualizationTool: c.VisualizationTool,
		ConsensusMode:     c.ConsensusMode,
		ConfidenceLevel:   c.ConfidenceLevel,
		MolProbityFilter:  c.MolProbityFilter,
		DotBracket:        dotBracket,
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/rnative/rnative-client/sdk/common"
	"github.com/rnative/rnative-client/sdk/models"
)

// Defines the flag names shared by the commands
const (
	FlagConfig            = "config"
	FlagBaseURL           = "base-url"
	FlagLogLevel          = "log-level"
	FlagLogFormat         = "log-format"
	FlagVerbose           = "verbose"
	FlagRequestTimeout    = "request-timeout"
	FlagRetries           = "retries"
	FlagConcurrency       = "concurrency"
	FlagHistoryDriver     = "history-driver"
	FlagHistoryDSN        = "history-dsn"
	FlagBrokerURL         = "broker-url"
	FlagBrokerQueue       = "broker-queue"
	FlagAnalyzer          = "analyzer"
	FlagVisualization     = "visualization"
	FlagConsensusMode     = "consensus-mode"
	FlagConfidence        = "confidence"
	FlagMolProbityFilter  = "molprobity-filter"
	FlagMolProbityFormat  = "molprobity-format"
	FlagInterval          = "interval"
	FlagTimeout           = "timeout"
	FlagVisualizationPath = "output"
)

// RegisterGlobalFlags adds the flags every command accepts. Defaults shown in
// help come from Default(); whether a flag was set is what decides if it
// overrides the loaded configuration.
func RegisterGlobalFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String(FlagConfig, "", "YAML config file (default $RNATIVE_CONFIG or ~/.config/rnative/config.yml)")
	fs.String(FlagBaseURL, d.BaseURL, "compute service endpoint")
	fs.String(FlagLogLevel, d.LogLevel, "log level (panic, fatal, error, warn, info, debug, trace)")
	fs.String(FlagLogFormat, d.LogFormat, "log format (text or json)")
	fs.BoolP(FlagVerbose, "v", false, "shorthand for --log-level=debug")
	fs.Duration(FlagRequestTimeout, d.RequestTimeout, "timeout of a single HTTP request")
	fs.Int(FlagRetries, d.Retries, "retries of a read after a transport failure")
	fs.Int(FlagConcurrency, d.Concurrency, "per-model results fetched in parallel")
	fs.String(FlagHistoryDriver, d.HistoryDriver, "task history driver (sqlite, postgres or none)")
	fs.String(FlagHistoryDSN, d.HistoryDSN, "task history data source")
	fs.String(FlagBrokerURL, "", "AMQP URL receiving task completion events")
	fs.String(FlagBrokerQueue, d.BrokerQueue, "AMQP queue receiving task completion events")
	fs.String(FlagMolProbityFormat, d.MolProbityFormat, "wire form of the MolProbity filter (enum or boolean)")
}

// RegisterAnalysisFlags adds the flags describing an analysis request.
func RegisterAnalysisFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String(FlagAnalyzer, string(d.Analyzer), fmt.Sprintf("base-pair analyzer (%s)", names(models.Analyzers)))
	fs.String(FlagVisualization, string(d.VisualizationTool), fmt.Sprintf("visualization tool (%s)", names(models.VisualizationTools)))
	fs.String(FlagConsensusMode, string(d.ConsensusMode), fmt.Sprintf("consensus mode (%s)", names(models.ConsensusModes)))
	fs.String(FlagConfidence, "fuzzy", "confidence level in [0, 1], or fuzzy")
	fs.String(FlagMolProbityFilter, string(d.MolProbityFilter), fmt.Sprintf("MolProbity filter (%s)", names(models.MolProbityFilters)))
}

// RegisterWaitFlags adds the flags controlling how a task is waited for.
func RegisterWaitFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.Duration(FlagInterval, d.PollInterval, "delay between two status polls")
	fs.Duration(FlagTimeout, d.WaitTimeout, "give up waiting after this long (0 waits forever)")
}

// RegisterOutputFlag adds the flag naming the visualization file.
func RegisterOutputFlag(fs *pflag.FlagSet) {
	fs.StringP(FlagVisualizationPath, "o", common.PathVisualization, "file receiving the SVG visualization")
}

func names[T ~string](values []T) string {
	s := ""
	for i, v := range values {
		if i > 0 {
			s += ", "
		}
		s += string(v)
	}
	return s
}

// ApplyFlags overlays every flag of fs that was set on the command line.
// Flags not registered on fs are skipped.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}
	str := func(name string) string {
		v, e := fs.GetString(name)
		if e != nil && err == nil {
			err = e
		}
		return v
	}
	dur := func(name string) time.Duration {
		v, e := fs.GetDuration(name)
		if e != nil && err == nil {
			err = e
		}
		return v
	}
	num := func(name string) int {
		v, e := fs.GetInt(name)
		if e != nil && err == nil {
			err = e
		}
		return v
	}

	if changed(FlagBaseURL) {
		c.BaseURL = str(FlagBaseURL)
	}
	if changed(FlagLogLevel) {
		c.LogLevel = str(FlagLogLevel)
	}
	if changed(FlagVerbose) {
		if verbose, e := fs.GetBool(FlagVerbose); e == nil && verbose {
			c.LogLevel = "debug"
		}
	}
	if changed(FlagLogFormat) {
		c.LogFormat = str(FlagLogFormat)
	}
	if changed(FlagRequestTimeout) {
		c.RequestTimeout = dur(FlagRequestTimeout)
	}
	if changed(FlagRetries) {
		c.Retries = num(FlagRetries)
	}
	if changed(FlagConcurrency) {
		c.Concurrency = num(FlagConcurrency)
	}
	if changed(FlagHistoryDriver) {
		c.HistoryDriver = str(FlagHistoryDriver)
	}
	if changed(FlagHistoryDSN) {
		c.HistoryDSN = str(FlagHistoryDSN)
	}
	if changed(FlagBrokerURL) {
		c.BrokerURL = str(FlagBrokerURL)
	}
	if changed(FlagBrokerQueue) {
		c.BrokerQueue = str(FlagBrokerQueue)
	}
	if changed(FlagMolProbityFormat) {
		c.MolProbityFormat = str(FlagMolProbityFormat)
	}
	if changed(FlagAnalyzer) {
		c.Analyzer = models.Analyzer(str(FlagAnalyzer))
	}
	if changed(FlagVisualization) {
		c.VisualizationTool = models.VisualizationTool(str(FlagVisualization))
	}
	if changed(FlagConsensusMode) {
		c.ConsensusMode = models.ConsensusMode(str(FlagConsensusMode))
	}
	if changed(FlagMolProbityFilter) {
		c.MolProbityFilter = models.MolProbityFilter(str(FlagMolProbityFilter))
	}
	if changed(FlagConfidence) {
		confidence, e := ParseConfidence(str(FlagConfidence))
		if e != nil {
			return fmt.Errorf("invalid --%s: %w", FlagConfidence, e)
		}
		c.ConfidenceLevel = confidence
	}
	if changed(FlagInterval) {
		c.PollInterval = dur(FlagInterval)
	}
	if changed(FlagTimeout) {
		c.WaitTimeout = dur(FlagTimeout)
	}
	if changed(FlagVisualizationPath) {
		c.VisualizationPath = str(FlagVisualizationPath)
	}

	return err
}

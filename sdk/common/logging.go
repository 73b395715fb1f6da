package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Defines the supported log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ConfigureLogging points the standard logrus logger at out with the given
// level and format.
func ConfigureLogging(out io.Writer, level string, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unable to parse log level %q: %w", level, err)
	}

	logrus.SetOutput(out)
	logrus.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", LogFormatText:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true})
	case LogFormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	return nil
}

// LogInfo writes information to the log
func LogInfo(message string) {
	logrus.Info(message)
}

// LogWarning writes warning to the log
func LogWarning(message string) {
	logrus.Warn(message)
}

// LogError writes error to the log
func LogError(message string) {
	logrus.Error(message)
}

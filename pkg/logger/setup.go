package logger

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flags are the logging options a command accepts.
type Flags struct {
	Level  string
	JSON   bool
	Source bool
}

// ReadFlags reads --log-level, --log-json and --log-source from cmd. Flags the
// operator did not set keep the value from defaults.
func ReadFlags(cmd *cobra.Command, defaults Flags) (Flags, error) {
	out := defaults
	flags := cmd.Flags()
	if flags.Changed("log-level") || out.Level == "" {
		level, err := flags.GetString("log-level")
		if err != nil {
			return Flags{}, fmt.Errorf("failed to get log-level flag: %w", err)
		}
		out.Level = level
	}
	if flags.Changed("log-json") {
		logJSON, err := flags.GetBool("log-json")
		if err != nil {
			return Flags{}, fmt.Errorf("failed to get log-json flag: %w", err)
		}
		out.JSON = logJSON
	}
	if flags.Changed("log-source") {
		logSource, err := flags.GetBool("log-source")
		if err != nil {
			return Flags{}, fmt.Errorf("failed to get log-source flag: %w", err)
		}
		out.Source = logSource
	}
	return out, nil
}

// SetupLogger installs the process default logger and returns it.
func SetupLogger(f Flags) Logger {
	Init(&Config{
		Level:      ParseLevel(f.Level),
		JSON:       f.JSON,
		AddSource:  f.Source,
		TimeFormat: "15:04:05",
	})
	return GetDefault()
}

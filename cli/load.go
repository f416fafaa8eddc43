package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/compozy/groupops/pkg/config"
	"github.com/compozy/groupops/pkg/logger"
)

// loadConfig merges defaults, the YAML file, environment variables and the
// flags the operator set explicitly.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, config.Service, error) {
	if err := loadEnvFile(cmd); err != nil {
		return nil, nil, err
	}
	service := config.NewService()
	var sources []config.Source
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	if flags := extractCLIFlags(cmd); len(flags) > 0 {
		sources = append(sources, config.NewCLIProvider(flags))
	}
	cfg, err := service.Load(ctx, sources...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, service, nil
}

// loadEnvFile exports the variables of the --env-file into the process
// environment. Variables already set are kept. A missing file is ignored.
func loadEnvFile(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func extractCLIFlags(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	for _, name := range config.CLIFlagNames() {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		switch flag.Value.Type() {
		case "int":
			if v, err := cmd.Flags().GetInt(name); err == nil {
				out[name] = v
			}
		case "bool":
			if v, err := cmd.Flags().GetBool(name); err == nil {
				out[name] = v
			}
		default:
			out[name] = flag.Value.String()
		}
	}
	return out
}

// setupLogging installs the process logger. Explicit flags win over the
// runtime section of the configuration.
func setupLogging(cmd *cobra.Command, cfg *config.Config) (logger.Logger, error) {
	flags, err := logger.ReadFlags(cmd, logger.Flags{
		Level: cfg.Runtime.LogLevel,
		JSON:  cfg.Runtime.LogJSON,
	})
	if err != nil {
		return nil, err
	}
	return logger.SetupLogger(flags), nil
}

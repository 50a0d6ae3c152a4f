package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/config"
	logpkg "github.com/gomtr72/question-generator/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "questiongen",
	Short:         "Generate comprehension quizzes from text, documents and web pages",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Environment name: local, dev, docker, prod (overrides ENV)")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (overrides config/<env>.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// resolveEnv returns the --env flag, then ENV, then "local".
func resolveEnv(cmd *cobra.Command) string {
	if env, _ := cmd.Flags().GetString("env"); env != "" {
		return env
	}
	return config.GetEnv()
}

// loadConfig reads --config when given, otherwise config/<env>.yaml.
func loadConfig(cmd *cobra.Command, env string) (config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(env)
}

// setup loads config and builds the logger with its optional file sink.
// The returned func flushes and closes the logger.
func setup(cmd *cobra.Command) (config.Config, string, *zap.Logger, func(), error) {
	env := resolveEnv(cmd)
	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return config.Config{}, "", nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, cleanup, err := logpkg.New(logpkg.Options{
		Env:   env,
		Level: cfg.Logging.Level,
		File: logpkg.FileConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		},
	})
	if err != nil {
		return config.Config{}, "", nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, env, logger, cleanup, nil
}

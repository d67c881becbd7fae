package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/smarter-day/restquery"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "RESTQUERY"

var (
	cfgFile string
	logger  *slog.Logger

	logLevels = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

var rootCmd = &cobra.Command{
	Use:           "restquery",
	Short:         "Compile REST query options into document store queries",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		logger = newLogger(viper.GetString("log.level"), viper.GetString("log.format"), cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./restquery.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringP("options", "o", "", "query options file (.json, .yaml or .yml); - reads JSON from stdin")
	rootCmd.PersistentFlags().String("id", "", "document identifier, or a JSON conditions object")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("options", rootCmd.PersistentFlags().Lookup("options"))
	_ = viper.BindPFlag("id", rootCmd.PersistentFlags().Lookup("id"))

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(runCmd)
}

// initConfig reads the optional config file and RESTQUERY_* environment
// variables (RESTQUERY_MONGODB_URI -> mongodb.uri).
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("restquery")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func newLogger(level, format string, w io.Writer) *slog.Logger {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadOptions reads the query options named by the "options" setting.
func loadOptions(stdin io.Reader) (restquery.QueryOptions, error) {
	path := viper.GetString("options")
	switch path {
	case "":
		return restquery.QueryOptions{}, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return restquery.QueryOptions{}, err
		}
		return restquery.DecodeOptionsJSON(data)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return restquery.QueryOptions{}, fmt.Errorf("failed to read options: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return restquery.DecodeOptionsYAML(data)
	default:
		return restquery.DecodeOptionsJSON(data)
	}
}

// resolveTarget combines the --id setting with the loaded options. --id may
// hold a document identifier or an inline JSON conditions object, which then
// replaces the options file.
func resolveTarget(opts restquery.QueryOptions) (string, restquery.QueryOptions, error) {
	raw := strings.TrimSpace(viper.GetString("id"))
	if raw == "" {
		return "", opts, nil
	}
	var target any = raw
	if strings.HasPrefix(raw, "{") {
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return "", opts, fmt.Errorf("%w: %v", restquery.ErrInvalidInput, err)
		}
		target = m
	}
	id, inline, err := restquery.ResolveTarget(target)
	if err != nil {
		return "", opts, err
	}
	if id == "" {
		return "", inline, nil
	}
	return id, opts, nil
}

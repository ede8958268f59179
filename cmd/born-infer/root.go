package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/born-ml/infer/internal/parallel"
	"github.com/born-ml/infer/keras"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "BORN_INFER"

// app carries state shared by the subcommands.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New(), logger: slog.Default()}
	var configFile string

	root := &cobra.Command{
		Use:           "born-infer",
		Short:         "Forward inference for Keras model files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.readConfig(configFile); err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), a.v.GetString("log.format"), a.v.GetString("log.level"))
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./born-infer.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("weights", "", "safetensors file overriding the embedded parameters")
	flags.Bool("sequential", false, "construct layers on a single goroutine")
	for key, flag := range map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
		"weights":    "weights",
		"sequential": "sequential",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		newVerifyCommand(a),
		newInspectCommand(a),
		newPredictCommand(a),
		newVersionCommand(),
	)
	return root
}

func (a *app) readConfig(path string) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if path != "" {
		a.v.SetConfigFile(path)
	} else {
		a.v.SetConfigName("born-infer")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// loadOptions assembles keras.LoadOptions from flags, environment and the
// config file. The returned function releases an opened weights file.
func (a *app) loadOptions() (keras.LoadOptions, func(), error) {
	opt := keras.DefaultLoadOptions()
	opt.Logger = a.logger
	if a.v.GetBool("sequential") {
		opt.Parallel = parallel.Sequential()
	}
	opt.FlagOverrides = a.paddingOverrides()

	release := func() {}
	path := a.v.GetString("weights")
	if path == "" {
		return opt, release, nil
	}
	src, err := keras.OpenSafeTensors(path)
	if err != nil {
		return opt, release, err
	}
	opt.Weights = src
	release = func() {
		if err := src.Close(); err != nil {
			a.logger.Warn("failed to close weights file", "path", path, "error", err)
		}
	}
	a.logger.Debug("using external weights", "path", path, "metadata", src.Metadata())
	return opt, release, nil
}

// load reads the model at path with the configured options.
func (a *app) load(path string) (keras.Model, func(), error) {
	opt, release, err := a.loadOptions()
	if err != nil {
		return nil, release, err
	}
	m, err := keras.LoadFile(path, opt)
	if err != nil {
		release()
		return nil, func() {}, err
	}
	return m, release, nil
}

// paddingOverrides collects padding.<flag> settings.
func (a *app) paddingOverrides() map[string]bool {
	out := make(map[string]bool)
	for _, name := range keras.PaddingFlags {
		if key := "padding." + name; a.v.IsSet(key) {
			out[name] = a.v.GetBool(key)
		}
	}
	return out
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "born-infer %s\n", version)
		},
	}
}

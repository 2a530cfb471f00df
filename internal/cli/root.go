package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ivlev/png2gif/internal/config"
	"github.com/ivlev/png2gif/internal/ctxlog"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates the png2gif command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "png2gif",
		Short:         "Собирает анимированный GIF из папки PNG-кадров",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogFormat != "" && opts.LogFormat != "text" && opts.LogFormat != "json" {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "путь к YAML-конфигу")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "уровень логов: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "формат логов: text, json")

	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInitConfigCommand(opts))

	return cmd
}

// load reads the config file and applies the global logging flags.
func (o *RootOptions) load(stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return cfg, nil, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	return cfg, ctxlog.New(cfg.Log.Level, cfg.Log.Format, stderr), nil
}

// Package cli implements the ocifetch command.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/ocifetch"
	"github.com/meigma/ocifetch/config"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// SetVersion sets the version information shown by --version.
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// app holds state shared by all subcommands.
type app struct {
	v            *viper.Viper
	cfgFile      string
	verbose      bool
	noColor      bool
	dockerConfig bool
}

// NewRootCmd builds the ocifetch command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "ocifetch",
		Short: "Fetch wasm components and capability providers from OCI registries",
		Long: `ocifetch pulls wasm components and capability provider archives from OCI
registries into a local cache, applying the host's registry policy.

Settings come from WASMCLOUD_OCI_* environment variables, an optional
config file and the flags below, with flags taking precedence.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.noColor {
				color.NoColor = true
			}
			if a.cfgFile == "" {
				return nil
			}
			return config.ReadFile(a.v, a.cfgFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file with registry settings")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&a.dockerConfig, "docker-config", false, "use credentials from ~/.docker/config.json")
	flags.Bool("allow-latest", false, "allow references tagged latest")
	flags.StringSlice("insecure-registry", nil, "registry host reachable over plain HTTP (repeatable)")
	flags.StringSlice("ca-path", nil, "additional CA certificate file (repeatable)")
	flags.String("cache-dir", "", "cache directory (default "+ocifetch.DefaultCacheDir()+")")

	// BindPFlag only fails for a nil flag.
	_ = a.v.BindPFlag(config.KeyAllowLatest, flags.Lookup("allow-latest"))
	_ = a.v.BindPFlag(config.KeyAllowedInsecure, flags.Lookup("insecure-registry"))
	_ = a.v.BindPFlag(config.KeyAdditionalCAPaths, flags.Lookup("ca-path"))
	_ = a.v.BindPFlag(config.KeyCacheDir, flags.Lookup("cache-dir"))

	cmd.AddCommand(
		newComponentCmd(a),
		newProviderCmd(a),
		newPathCmd(a),
		newInspectCmd(a),
	)
	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	cmd := NewRootCmd()
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorColor.Sprint("✗ ")+err.Error())
	}
	return err
}

// logger writes text logs to w, at Debug level when verbose.
func (a *app) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// fetcher builds a Fetcher from the merged configuration.
func (a *app) fetcher(cmd *cobra.Command) (*ocifetch.Fetcher, error) {
	cfg := config.Load(a.v)
	opts := append(cfg.Options(),
		ocifetch.WithLogger(a.logger(cmd.ErrOrStderr())),
		ocifetch.WithUserAgent("ocifetch/"+version),
	)
	if a.dockerConfig {
		opts = append(opts, ocifetch.WithDockerConfig())
	}
	return ocifetch.New(opts...)
}

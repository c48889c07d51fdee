// Package cli wires configuration, validation, message building and
// delivery into the photoreport command tree.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shineum/photoreport/internal/config"
	"github.com/shineum/photoreport/internal/provider"
)

// ErrInvalidArguments is returned after a validation message was printed.
var ErrInvalidArguments = errors.New("invalid arguments")

// ProviderFactory builds the delivery backend for one send run. Console
// backends write to out.
type ProviderFactory func(ctx context.Context, cfg *config.Config, sender string, out io.Writer) (provider.Provider, error)

// Options configures the command tree. Zero values select the process
// defaults: stdout, stderr, the wall clock and the configured provider.
type Options struct {
	Out         io.Writer
	Err         io.Writer
	Now         func() time.Time
	NewProvider ProviderFactory
}

type runtimeState struct {
	opts Options
	cfg  *config.Config

	configPath       string
	providerOverride string
	password         string
	logLevel         string
}

// NewRootCommand returns the photoreport command with all subcommands attached.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewProvider == nil {
		opts.NewProvider = selectProvider
	}
	rt := &runtimeState{opts: opts}

	root := &cobra.Command{
		Use:           "photoreport",
		Short:         "Daily photo archive and report mailing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return rt.load()
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&rt.providerOverride, "provider", "", "Delivery provider: smtp, ses, graph, mbox, stdout")
	root.PersistentFlags().StringVar(&rt.password, "password", "", "SMTP password of the sender account")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newArchiveCommand(rt),
		newSendCommand(rt),
		newOutboxCommand(rt),
	)
	return root
}

// load reads the configuration and applies flag overrides, which win over
// both YAML and environment.
func (rt *runtimeState) load() error {
	var (
		cfg *config.Config
		err error
	)
	if rt.configPath != "" {
		cfg, err = config.LoadFromFile(rt.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if rt.providerOverride != "" {
		cfg.Provider = strings.ToLower(rt.providerOverride)
	}
	if rt.password != "" {
		cfg.SMTP.Password = rt.password
	}
	if rt.logLevel != "" {
		cfg.Logging.Level = rt.logLevel
	}

	slog.SetDefault(newLogger(rt.opts.Err, cfg.Logging.Level))
	rt.cfg = cfg
	return nil
}

// newLogger returns a JSON logger at the given level. Unknown levels mean info.
func newLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

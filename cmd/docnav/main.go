package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "docnav:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile  string
	logLevel string
	cfg      config.Config
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "docnav",
		Short: "Build, validate and serve documentation navigation structure",
		Long: `docnav turns a documentation structure document into a sorted navigation
tree and answers breadcrumb, pager and lookup queries over HTTP.

  docnav serve               Build from the content dir, serve and watch
  docnav build -o out.json   Write the structure document for a content dir
  docnav check file.json     Validate a structure document`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", os.Getenv("DOCNAV_CONFIG_FILE"), "config file (YAML)")
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(a), newBuildCmd(a), newCheckCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	// Logs go to stderr so build can write the document to stdout.
	a.log = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

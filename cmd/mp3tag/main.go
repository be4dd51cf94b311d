package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mp3tag/internal/config"
	"mp3tag/internal/logger"
	"mp3tag/internal/shutdown"
)

// app carries what every command needs once the root command has loaded
// the configuration.
type app struct {
	configPath string
	verbose    bool

	cfg config.Config
	log *logger.Logger
	sh  *shutdown.Handler
	in  io.Reader
}

func main() {
	initColors()

	a := &app{in: os.Stdin}
	root := newRootCommand(a)
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorError.Sprint("[ERROR]"), err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mp3tag",
		Short:         "Resolve and write ID3v2.4 tags for MP3 files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "show debug output")

	root.AddCommand(
		newScanCommand(a),
		newEditCommand(a),
		newFetchCommand(a),
		newRenameCommand(a),
		newParseCommand(a),
		newConfigCommand(a),
	)
	return root
}

// setup loads the configuration (CLI flags > environment > config file >
// defaults) and starts logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.verbose {
		cfg.Verbose = true
	}
	a.cfg = cfg

	a.log = logger.NewWithWriter(cmd.OutOrStdout(), cfg.Verbose)
	if !cfg.Verbose && cfg.LogDir != "" {
		if path, err := a.log.OpenLogDir(cfg.LogDir); err != nil {
			a.log.Debug("File logging disabled: %v", err)
		} else {
			a.log.Debug("Logging to file: %s", path)
		}
	}
	if path := a.resolvedConfigPath(); path != "" {
		a.log.Debug("Loaded configuration from: %s", path)
	}

	a.sh = shutdown.New()
	a.sh.AddCleanup(func() { a.log.Close() })
	a.sh.Listen()
	return nil
}

func (a *app) resolvedConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.FindConfigFile()
}

// close runs the shutdown cleanups. Config commands never create a handler,
// so their logger is closed directly.
func (a *app) close() {
	if a.sh != nil {
		a.sh.Shutdown()
		a.sh.Close()
		return
	}
	if a.log != nil {
		a.log.Close()
	}
}

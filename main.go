package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mosajjal/bountycatch/pkg/config"
	"github.com/mosajjal/bountycatch/pkg/project"
	"github.com/mosajjal/bountycatch/pkg/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var nocolorLog = strings.ToLower(os.Getenv("NO_COLOR")) == "true"

var (
	commit  string = "NOT_PROVIDED"
	version string = "UNKNOWN"
)

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs. it is filled in by setup right
// before the subcommand runs and released by close once it returns.
type app struct {
	configPath string
	verbose    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logger  zerolog.Logger
	cfg     *config.Config
	store   store.SetStore
	closers []func() error
}

// execute runs one bountycatch invocation and returns the error that decides the exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	a.logger = newConsoleLogger(stderr, zerolog.InfoLevel)
	defer a.close()

	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		a.logger.Error().Msgf("%s", err)
		return err
	}
	return nil
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bountycatch",
		Short: "Manage bug bounty targets",
		Long:  `bountycatch keeps named sets of domains ("projects") in redis to track recon targets across engagements`,
		Example: `  bountycatch add -p myproject -f domains.txt
  bountycatch export -p myproject -f output.json --format json
  bountycatch count -p myproject
  bountycatch delete -p myproject`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd == cmd.Root() || cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("version") {
				fmt.Fprintf(a.stdout, "bountycatch version %s, commit %s\n", version, commit)
				return nil
			}
			if flags.Changed("defaultconfig") {
				return a.writeDefaultConfig()
			}
			return cmd.Help()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "$HOME/.bountycatch.yaml", "path to YAML or JSON configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.Flags().BoolP("defaultconfig", "d", false, "write default config to the --config path")
	_ = cmd.Flags().BoolP("version", "V", false, "print version and exit")

	cmd.AddCommand(a.addCmd(), a.exportCmd(), a.printCmd(), a.countCmd(), a.deleteCmd(), a.serveCmd())
	return cmd
}

// resolveConfigPath expands the default $HOME/.bountycatch.yaml.
func (a *app) resolveConfigPath() string {
	if a.configPath != "$HOME/.bountycatch.yaml" {
		return a.configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		a.logger.Warn().Msgf("failed to get user home directory: %s", err)
		return ""
	}
	return filepath.Join(home, ".bountycatch.yaml")
}

func (a *app) writeDefaultConfig() error {
	path := a.resolveConfigPath()
	if path == "" {
		return fmt.Errorf("no config path to write to")
	}
	if err := os.WriteFile(path, config.Defaults, 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	a.logger.Info().Msgf("wrote default config to %s", path)
	return nil
}

// setup loads the configuration, switches to the configured logger and
// connects to the store. a store that can't be reached ends the run here.
func (a *app) setup(ctx context.Context) error {
	if a.verbose {
		a.logger = a.logger.Level(zerolog.DebugLevel)
	}
	cfg, err := config.Load(a.resolveConfigPath(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to load default config: %w", err)
	}
	if a.verbose {
		cfg.SetLevel("debug")
	}
	a.cfg = cfg

	logger, closeLog, err := newLogger(cfg.Logging(), a.stderr)
	if err != nil {
		// keep going with the console logger
		a.logger.Warn().Msgf("failed to set up logging: %s", err)
	} else {
		a.logger = logger
		a.closers = append(a.closers, closeLog)
	}

	storeConf := cfg.Store()
	s, err := store.Open(ctx, storeConf)
	if err != nil {
		if storeConf.Engine == store.EnginePebble {
			return fmt.Errorf("failed to open pebble database at %s: %w", storeConf.Path, err)
		}
		return fmt.Errorf("failed to connect to redis at %s, please check your redis server is running: %w", storeConf.Addr(), err)
	}
	a.logger.Debug().Msgf("connected to %s store", storeConf.Engine)
	a.store = s
	a.closers = append(a.closers, s.Close)
	return nil
}

func (a *app) close() {
	// in reverse, so the log file outlives the store
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func (a *app) project(name string) *project.Project {
	return project.New(name, a.store, a.logger)
}

// Package main is the hclsh entry point: an interactive shell for HCL
// expressions and modules.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowave-io/hclsh/internal/config"
	"github.com/flowave-io/hclsh/pkg/log"
)

var (
	configFile string
	noIndent   bool
	version    = "0.1.0" // set at build time

	v   = config.New()
	cfg *config.Config
)

// rootCmd starts the interactive shell when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "hclsh",
	Short: "Interactive shell for HCL",
	Long: `hclsh evaluates HCL expressions and statements interactively, with
completion, automatic indentation, module imports and shell escapes.`,
	SilenceUsage: true,
	RunE:         runConsole,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive shell",
	Args:  cobra.NoArgs,
	RunE:  runConsole,
}

var runCmd = &cobra.Command{
	Use:   "run <file.hcl>",
	Short: "Replay a file of statements without a terminal",
	Long: `Replay a file line by line as if it were typed at the prompt. The run
stops at the first failing statement and exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run:   printVersion,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file [default: ~/.hclsh.yaml or ./.hclsh.yaml]")
	flags.String("log-level", "", "Set log level (debug|info|warn|error) [default: warn]")
	flags.String("log-file", "", "Write logs to file instead of stderr")
	flags.String("load", "", "File replayed quietly before the first prompt")
	flags.Bool("watch", false, "Replay the --load file again whenever it changes")
	flags.BoolVar(&noIndent, "no-indent", false, "Start with automatic indentation off")

	for key, flag := range map[string]string{
		config.KeyLogLevel: "log-level",
		config.KeyLogFile:  "log-file",
		config.KeyLoad:     "load",
		config.KeyWatch:    "watch",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if noIndent {
		v.Set(config.KeyAutoIndent, false)
	}
	var err error
	cfg, err = config.Load(v, configFile)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}
	if err := log.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	if cfg.File != "" {
		log.Debug("config loaded", "file", cfg.File)
	}
}

// Package config loads hclsh settings from defaults, ~/.hclsh.yaml or
// ./.hclsh.yaml, HCLSH_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/flowave-io/hclsh/internal/console"
	"github.com/flowave-io/hclsh/internal/interp"
)

const (
	KeyEditor        = "editor"
	KeyShell         = "shell"
	KeyHistFile      = "histfile"
	KeyHistSize      = "histsize"
	KeyIndentUnit    = "indent_unit"
	KeyAutoIndent    = "auto_indent"
	KeyLineNumOpt    = "line_num_opt"
	KeyDocURL        = "doc_url"
	KeyEchoReplay    = "echo_replay"
	KeyRetries       = "retries"
	KeyModulePath    = "module_path"
	KeyModuleSources = "module_sources"
	KeyCacheDir      = "cache_dir"
	KeyLoad          = "load"
	KeyWatch         = "watch"
	KeyLogLevel      = "log_level"
	KeyLogFile       = "log_file"
)

// Config is the resolved configuration.
type Config struct {
	Editor        string
	Shell         string
	HistFile      string
	HistSize      int
	IndentUnit    string
	AutoIndent    bool
	LineNumOpt    string
	DocURL        string
	EchoReplay    bool
	Retries       int
	ModulePath    []string
	ModuleSources map[string]string
	CacheDir      string
	// Load is the bootstrap file replayed quietly at startup.
	Load     string
	Watch    bool
	Triggers console.Triggers
	LogLevel string
	LogFile  string
	// File is the config file that was read, if any.
	File string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("HCLSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	opts := console.DefaultOptions()
	v.SetDefault(KeyEditor, envOr("EDITOR", opts.Editor))
	v.SetDefault(KeyShell, envOr("SHELL", "/bin/sh"))
	v.SetDefault(KeyHistFile, "~/.hclsh_history")
	v.SetDefault(KeyHistSize, 1000)
	v.SetDefault(KeyIndentUnit, opts.IndentUnit)
	v.SetDefault(KeyAutoIndent, opts.AutoIndent)
	v.SetDefault(KeyLineNumOpt, opts.LineNumOpt)
	v.SetDefault(KeyDocURL, opts.DocURL)
	v.SetDefault(KeyEchoReplay, opts.EchoReplay)
	v.SetDefault(KeyRetries, 3)
	v.SetDefault(KeyModulePath, []string{".", "~/.hclsh/modules"})
	v.SetDefault(KeyModuleSources, map[string]string{})
	v.SetDefault(KeyCacheDir, defaultCacheDir())
	v.SetDefault(KeyLoad, "")
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyLogFile, "")

	t := opts.Triggers
	v.SetDefault("triggers.edit", t.Edit)
	v.SetDefault("triggers.list", t.List)
	v.SetDefault("triggers.shell", t.Shell)
	v.SetDefault("triggers.doc", t.Doc)
	v.SetDefault("triggers.search", t.Search)
	v.SetDefault("triggers.help", t.Help)
	v.SetDefault("triggers.toggle_indent", t.ToggleIndent)
}

// Load reads the config file and resolves every key. An explicit file must
// exist; the default locations are optional.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".hclsh")
		v.SetConfigType("yaml")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	c := &Config{
		Editor:        v.GetString(KeyEditor),
		Shell:         v.GetString(KeyShell),
		HistSize:      v.GetInt(KeyHistSize),
		IndentUnit:    v.GetString(KeyIndentUnit),
		AutoIndent:    v.GetBool(KeyAutoIndent),
		LineNumOpt:    v.GetString(KeyLineNumOpt),
		DocURL:        v.GetString(KeyDocURL),
		EchoReplay:    v.GetBool(KeyEchoReplay),
		Retries:       v.GetInt(KeyRetries),
		ModuleSources: v.GetStringMapString(KeyModuleSources),
		Watch:         v.GetBool(KeyWatch),
		LogLevel:      v.GetString(KeyLogLevel),
		LogFile:       v.GetString(KeyLogFile),
		File:          v.ConfigFileUsed(),
		Triggers: console.Triggers{
			Edit:         v.GetString("triggers.edit"),
			List:         v.GetString("triggers.list"),
			Shell:        v.GetString("triggers.shell"),
			Doc:          v.GetString("triggers.doc"),
			Search:       v.GetString("triggers.search"),
			Help:         v.GetString("triggers.help"),
			ToggleIndent: v.GetString("triggers.toggle_indent"),
		},
	}
	var err error
	if c.HistFile, err = expand(v.GetString(KeyHistFile)); err != nil {
		return nil, err
	}
	if c.CacheDir, err = expand(v.GetString(KeyCacheDir)); err != nil {
		return nil, err
	}
	if c.Load, err = expand(v.GetString(KeyLoad)); err != nil {
		return nil, err
	}
	for _, p := range pathList(v.GetStringSlice(KeyModulePath)) {
		exp, err := expand(p)
		if err != nil {
			return nil, err
		}
		c.ModulePath = append(c.ModulePath, exp)
	}
	if c.HistSize <= 0 {
		c.HistSize = 1000
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return c, nil
}

// ConsoleOptions builds the pipeline options.
func (c *Config) ConsoleOptions(stdout, stderr io.Writer) console.Options {
	opts := console.DefaultOptions()
	opts.Triggers = c.Triggers
	opts.IndentUnit = c.IndentUnit
	opts.AutoIndent = c.AutoIndent
	opts.Editor = c.Editor
	opts.LineNumOpt = c.LineNumOpt
	opts.DocURL = c.DocURL
	opts.EchoReplay = c.EchoReplay
	opts.Stdout = stdout
	opts.Stderr = stderr
	return opts
}

// InterpOptions builds the interpreter options.
func (c *Config) InterpOptions(stdout io.Writer) interp.Options {
	return interp.Options{
		Stdout:        stdout,
		ModulePath:    c.ModulePath,
		ModuleSources: c.ModuleSources,
		CacheDir:      c.CacheDir,
	}
}

// pathList accepts both YAML lists and a single PATH-style string.
func pathList(in []string) []string {
	var out []string
	for _, p := range in {
		for _, part := range filepath.SplitList(p) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func expand(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	exp, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return exp, nil
}

func envOr(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "hclsh", "modules")
	}
	return "~/.hclsh/cache"
}

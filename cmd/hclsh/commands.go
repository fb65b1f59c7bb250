package main

import (
	"fmt"
	"os"
	"runtime"

	gv "github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/flowave-io/hclsh/internal/cli"
	"github.com/flowave-io/hclsh/pkg/log"
)

func runConsole(cmd *cobra.Command, _ []string) error {
	log.Info("starting hclsh", "version", version)
	return cli.RunConsole(cmd.Context(), cfg, displayVersion())
}

func runFile(cmd *cobra.Command, args []string) error {
	log.Info("running file", "file", args[0])
	return cli.RunFile(cmd.Context(), cfg, args[0], os.Stdout, os.Stderr)
}

func printVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("hclsh v%s (%s %s/%s)\n", displayVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// displayVersion normalises the build version, falling back to the raw
// string when it is not semver.
func displayVersion() string {
	parsed, err := gv.NewVersion(version)
	if err != nil {
		return version
	}
	return parsed.String()
}

// Package proc runs external programs for the console: captured shell
// commands, editors attached to the terminal, subshells and the browser.
package proc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/flowave-io/hclsh/internal/console"
	"github.com/flowave-io/hclsh/pkg/log"
)

// Runner is the console's process collaborator.
type Runner struct {
	// Shell is started by Suspend where the process cannot stop itself.
	Shell string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var _ console.Runner = (*Runner)(nil)

func New(shell string) *Runner {
	return &Runner{Shell: shell, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run spawns argv with stdin attached and captures its output.
func (r *Runner) Run(argv []string) (console.ShellResult, error) {
	if len(argv) == 0 {
		return console.ShellResult{}, errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = r.Stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := console.ShellResult{Out: stdout.String(), Err: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.RC = exitErr.ExitCode()
		log.Debug("command exited", "argv", argv, "rc", res.RC)
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", argv[0], err)
	}
	return res, nil
}

func (r *Runner) Chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	return nil
}

// Edit runs an editor on the terminal and waits for it.
func (r *Runner) Edit(argv []string) error {
	if len(argv) == 0 {
		return errors.New("no editor configured")
	}
	restore := saveTerminal()
	defer restore()
	if err := r.attached(argv).Run(); err != nil {
		return fmt.Errorf("editor %s: %w", argv[0], err)
	}
	return nil
}

// Browse opens url with the platform's default handler without waiting.
func (r *Runner) Browse(url string) error {
	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return cmd.Start()
}

func (r *Runner) subshell() error {
	shell := r.Shell
	if shell == "" {
		shell = defaultShell()
	}
	restore := saveTerminal()
	defer restore()
	fmt.Fprintf(r.Stderr, "starting %s; exit it to return\n", shell)
	if err := r.attached([]string{shell}).Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("subshell: %w", err)
	}
	return nil
}

func (r *Runner) attached(argv []string) *exec.Cmd {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd
}

func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

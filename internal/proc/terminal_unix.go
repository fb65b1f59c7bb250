//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
)

// Suspend stops the process like ^Z would. Over SSH a subshell is started
// instead, since a stopped remote session is easy to lose.
func (r *Runner) Suspend() error {
	if os.Getenv("SSH_CONNECTION") != "" {
		return r.subshell()
	}
	restore := saveTerminal()
	defer restore()
	return syscall.Kill(os.Getpid(), syscall.SIGSTOP)
}

// saveTerminal records the tty settings and returns a func that puts them
// back. Without a tty it does nothing.
func saveTerminal() func() {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return func() {}
	}
	save := stty("-g")
	save.Stdin = tty
	out, err := save.Output()
	if err != nil {
		tty.Close()
		return func() {}
	}
	state := strings.TrimSpace(string(out))
	return func() {
		cmd := stty(state)
		cmd.Stdin = tty
		_ = cmd.Run()
		tty.Close()
	}
}

func stty(args ...string) *exec.Cmd {
	if runtime.GOOS == "darwin" {
		return exec.Command("stty", append([]string{"-f", "/dev/tty"}, args...)...)
	}
	return exec.Command("stty", args...)
}

func defaultShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/sh"
}

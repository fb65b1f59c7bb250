//go:build windows

package proc

import "os"

// Suspend starts a subshell; Windows processes cannot stop themselves.
func (r *Runner) Suspend() error { return r.subshell() }

func saveTerminal() func() { return func() {} }

func defaultShell() string {
	if s := os.Getenv("COMSPEC"); s != "" {
		return s
	}
	return "cmd.exe"
}

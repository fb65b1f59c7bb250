package cli

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/fatih/color"

	"github.com/flowave-io/hclsh/pkg/log"
)

// State is where the supervisor is in the session lifecycle.
type State int

const (
	StateRunning State = iota
	StateCrashed
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCrashed:
		return "crashed"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var bannerColor = color.New(color.FgRed, color.Bold).SprintFunc()

// Supervisor restarts a session that panicked, up to Retries times.
type Supervisor struct {
	Retries int
	Stderr  io.Writer

	state   State
	crashes int
}

func (s *Supervisor) State() State { return s.state }
func (s *Supervisor) Crashes() int { return s.crashes }

// Run calls run until it returns normally. A returned error ends
// supervision without a restart.
func (s *Supervisor) Run(run func() error) error {
	for {
		s.state = StateRunning
		crashed, err := s.protect(run)
		if !crashed {
			s.state = StateTerminated
			return err
		}
		s.crashes++
		if s.crashes > s.Retries {
			s.state = StateTerminated
			log.Error("session crashed too often, giving up", "crashes", s.crashes)
			return fmt.Errorf("giving up after %d crashes: %w", s.crashes, err)
		}
		s.state = StateCrashed
		log.Warn("session crashed", "attempt", s.crashes, "retries", s.Retries)
		fmt.Fprintln(s.Stderr, bannerColor(fmt.Sprintf("*** hclsh crashed; restarting (%d/%d) ***", s.crashes, s.Retries)))
	}
}

func (s *Supervisor) protect(run func() error) (crashed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			crashed = true
			err = fmt.Errorf("panic: %v", r)
			fmt.Fprintf(s.Stderr, "%v\n%s", r, debug.Stack())
		}
	}()
	return false, run()
}

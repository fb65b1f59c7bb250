package cli

import (
	"fmt"

	"github.com/chzyer/readline"

	"github.com/flowave-io/hclsh/internal/console"
)

// Reader is the interactive line editor. History is owned by the
// persistent log, so readline never writes a file of its own.
type Reader struct {
	rl *readline.Instance
}

var _ console.LineReader = (*Reader)(nil)

// NewReader opens the terminal with TAB completion from c and seeds the
// recall list with history, oldest first.
func NewReader(c *console.Completer, history []string, limit int) (*Reader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 console.PrimaryPrompt,
		AutoComplete:           console.NewReadlineCompleter(c),
		InterruptPrompt:        "^C",
		HistoryLimit:           limit,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	for _, line := range history {
		if err := rl.SaveHistory(line); err != nil {
			_ = rl.Close()
			return nil, fmt.Errorf("load history: %w", err)
		}
	}
	return &Reader{rl: rl}, nil
}

// ReadLine shows prompt with prefill already typed after it.
func (r *Reader) ReadLine(prompt, prefill string) (string, error) {
	r.rl.SetPrompt(prompt)
	return r.rl.ReadlineWithDefault(prefill)
}

func (r *Reader) AddHistory(line string) error { return r.rl.SaveHistory(line) }

func (r *Reader) Close() error { return r.rl.Close() }

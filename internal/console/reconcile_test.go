package console

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var replayScript = []string{
	"class Foo:",
	"    def m(self):",
	"        pass",
	"",
	"    def n(self):",
	"        pass",
	"",
	"",
	"if x:",
	"    a = 1",
	"elif y:",
	"    a = 2",
	"else:",
	"    a = 3",
	"",
	"# a comment",
	"foo = Foo()",
	`1 + "2"`,
	"bar = 1",
	"baz = 2",
}

func TestReplayStopsExecutingAfterError(t *testing.T) {
	h := newHarness(t)
	reader := &fakeReader{}
	h.console.SetLineReader(reader)

	err := h.console.Replay(replayScript, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TypeError")

	require.Len(t, h.interp.runs, 4)
	assert.Equal(t, "class Foo:\n    def m(self):\n        pass\n    def n(self):\n        pass\n", h.interp.runs[0])
	assert.Equal(t, "if x:\n    a = 1\nelif y:\n    a = 2\nelse:\n    a = 3\n", h.interp.runs[1])
	assert.Equal(t, "foo = Foo()", h.interp.runs[2])
	assert.Equal(t, `1 + "2"`, h.interp.runs[3])

	ns := h.interp.Namespace()
	_, ok := ns.Lookup("Foo")
	assert.True(t, ok)
	_, ok = ns.Lookup("foo")
	assert.True(t, ok)
	_, ok = ns.Lookup("bar")
	assert.False(t, ok, "lines after the error never run")

	hist := h.console.History().Lines()
	assert.Equal(t, []string{"bar = 1", "baz = 2"}, hist[len(hist)-2:])
	assert.Contains(t, hist, `1 + "2"`)
	assert.NotContains(t, hist, "# a comment")

	assert.Contains(t, h.stdout.String(), "# a comment")
	assert.Contains(t, h.stdout.String(), ">>> foo = Foo()")
	assert.Contains(t, h.stdout.String(), "... elif y:")
	assert.Contains(t, h.stderr.String(), "TypeError: unsupported operand")
	assert.Contains(t, reader.history, "foo = Foo()")
	assert.NotContains(t, reader.history, "bar = 1")
}

func TestReplayFlushesOpenStatementAtEOF(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.console.Replay([]string{"if x:", "    y = 1"}, false))
	assert.Equal(t, []string{"if x:\n    y = 1\n"}, h.interp.runs)
	assert.False(t, h.console.More())
}

func TestReplayCollapsesBlankRuns(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.console.Replay([]string{"if x:", "    a = 1", "", "", "", "b = 2"}, false))
	assert.Equal(t, []string{"if x:", "    a = 1", "", "b = 2"}, h.console.History().Lines())
}

func TestQuietReplayLeavesHistoryAlone(t *testing.T) {
	h := newHarness(t)
	reader := &fakeReader{}
	h.console.SetLineReader(reader)
	_, err := h.console.Push("x = 1")
	require.NoError(t, err)

	require.NoError(t, h.console.Replay([]string{"y = 2", "z = 3"}, true))
	assert.Equal(t, []string{"x = 1"}, h.console.History().Lines())
	assert.Empty(t, h.stdout.String())
	assert.Empty(t, reader.history)
	_, ok := h.interp.Namespace().Lookup("z")
	assert.True(t, ok)
}

func TestEditSessionCommentsCurrentSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.console.Push("x = 1")
	require.NoError(t, err)
	_, err = h.console.Push("")
	require.NoError(t, err)

	var scratch string
	h.runner.onEdit = func(path string) error {
		scratch = path
		return nil
	}
	_, err = h.console.Process(`\e`)
	require.NoError(t, err)

	require.Len(t, h.runner.edited, 1)
	assert.Equal(t, "# x = 1\n", h.runner.edited[0])
	assert.Equal(t, ".py", filepath.Ext(scratch))
	assert.NoFileExists(t, scratch)
	assert.NoDirExists(t, filepath.Dir(scratch))
	assert.Equal(t, []string{"x = 1"}, h.interp.runs, "commented lines are not run again")
}

func TestEditSessionFallsBackToPreviousSession(t *testing.T) {
	h := newHarness(t)
	h.console.SetPreviousSession([]string{"old = 1", "older = 2"})

	_, err := h.console.Process(`\e`)
	require.NoError(t, err)

	require.Len(t, h.runner.edited, 1)
	assert.Equal(t, "old = 1\nolder = 2\n", h.runner.edited[0])
	_, ok := h.interp.Namespace().Lookup("older")
	assert.True(t, ok, "uncommented lines are replayed")
}

func TestEditSessionReplaysEditedFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.console.Push("x = 1")
	require.NoError(t, err)
	h.runner.onEdit = func(path string) error {
		return os.WriteFile(path, []byte("# x = 1\nx = 5\ny = x\n"), 0o600)
	}
	_, err = h.console.Process(`\e`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x = 1", "x = 5", "y = x"}, h.interp.runs)
	assert.Equal(t, []string{"x = 1", "x = 5", "y = x"}, h.console.History().Lines())
}

func TestEditSessionSkipsReplayWhenEditorFails(t *testing.T) {
	h := newHarness(t)
	h.console.SetPreviousSession([]string{"x = 1"})
	var scratch string
	h.runner.onEdit = func(path string) error {
		scratch = path
		return errors.New("exit status 1")
	}
	_, err := h.console.Process(`\e`)
	require.NoError(t, err)
	assert.Empty(t, h.interp.runs)
	assert.Contains(t, h.stderr.String(), "nothing replayed")
	assert.NoFileExists(t, scratch)
}

func TestReplayFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "boot.py")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\r\nb = 2\r\n"), 0o600))
	require.NoError(t, h.console.ReplayFile(path, true))
	assert.Equal(t, []string{"a = 1", "b = 2"}, h.interp.runs)
	assert.Error(t, h.console.ReplayFile(filepath.Join(t.TempDir(), "missing"), true))
}

func TestEditSessionKeepsPendingStatement(t *testing.T) {
	h := newHarness(t)
	_, err := h.console.Process("xs = [")
	require.NoError(t, err)
	_, err = h.console.Process("  1")
	require.NoError(t, err)
	require.True(t, h.console.More())
	indent := h.console.Indent()

	h.runner.onEdit = func(string) error { return errors.New("exit status 1") }
	_, err = h.console.Process(`\e`)
	require.NoError(t, err)
	assert.True(t, h.console.More(), "a failed edit keeps the open statement")

	h.runner.onEdit = func(path string) error {
		return os.WriteFile(path, []byte("y = 2\n"), 0o600)
	}
	more, err := h.console.Process(`\e`)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, indent, h.console.Indent())
	_, ok := h.interp.Namespace().Lookup("y")
	assert.True(t, ok)

	more, err = h.console.Process("]")
	require.NoError(t, err)
	assert.False(t, more)
	assert.Contains(t, h.interp.runs, "xs = [\n  1\n]")
}

func TestEditSessionFallbackSkipsSpecialCommands(t *testing.T) {
	h := newHarness(t)
	h.console.SetPreviousSession([]string{"x = 1", "x?", "!ls", `\l x`, "y = 2"})

	_, err := h.console.Process(`\e`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x = 1", "y = 2"}, h.interp.runs)
	assert.Empty(t, h.runner.ran, "shell lines are not run again")
	assert.Empty(t, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "!ls")
}

func TestEditSessionReportsReplayErrorOnce(t *testing.T) {
	h := newHarness(t)
	h.runner.onEdit = func(path string) error {
		return os.WriteFile(path, []byte("1 + \"2\"\n"), 0o600)
	}
	_, err := h.console.Process(`\e`)
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(h.stderr.String(), "TypeError"))
}

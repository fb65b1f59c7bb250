package console

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHistoryCollapsesBlanks(t *testing.T) {
	var h SessionHistory
	h.Extend([]string{"a", "", "  "})
	h.Extend([]string{"", "b", ""})
	assert.Equal(t, []string{"a", "", "b", ""}, h.Lines())

	h.Truncate(1)
	assert.Equal(t, []string{"a"}, h.Lines())
	h.Truncate(5)
	assert.Equal(t, 1, h.Len())
}

func TestExecutorCapturesFailedStatements(t *testing.T) {
	interp := newFakeInterp()
	var hist SessionHistory
	e := NewExecutor(interp, &hist)

	more, err := e.Push("if x:")
	require.NoError(t, err)
	assert.True(t, more)
	assert.Empty(t, hist.Lines(), "open statements are not recorded yet")

	e.Reset()
	assert.False(t, e.Pending())

	_, err = e.Push(`1 + "2"`)
	require.Error(t, err)
	assert.Equal(t, []string{`1 + "2"`}, hist.Lines())
	assert.False(t, e.Pending())
}

func TestExecutorSkipsBlankStatements(t *testing.T) {
	var hist SessionHistory
	e := NewExecutor(newFakeInterp(), &hist)

	for _, ln := range []string{"", "   "} {
		more, err := e.Push(ln)
		require.NoError(t, err)
		assert.False(t, more)
	}
	assert.Empty(t, hist.Lines())

	for _, ln := range []string{"if x:", "    y = 1", ""} {
		_, err := e.Push(ln)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"if x:", "    y = 1", ""}, hist.Lines(), "a block keeps its closing blank")
}

func TestPersistentLogSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	first, err := OpenPersistentLog(path)
	require.NoError(t, err)
	assert.Empty(t, first.Previous())
	require.NoError(t, first.Append("a = 1"))
	require.NoError(t, first.Append("a = 1"))
	require.NoError(t, first.Append("   "))
	require.NoError(t, first.Append("b = a"))
	require.NoError(t, first.Close())

	second, err := OpenPersistentLog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a = 1", "b = a"}, second.Previous())
	require.NoError(t, second.Append("c = 3"))
	require.NoError(t, second.Close())

	third, err := OpenPersistentLog(path)
	require.NoError(t, err)
	defer third.Close()
	assert.Equal(t, []string{"c = 3"}, third.Previous())
	assert.Equal(t, []string{"b = a", "c = 3"}, third.Entries(2))
	assert.Equal(t, []string{"a = 1", "b = a", "c = 3"}, third.Entries(0))
	assert.NotEqual(t, second.SessionID(), third.SessionID())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "# hclsh-history 1.0.0", lines[0])
	assert.Equal(t, 3, strings.Count(string(raw), sessionMarkerPrefix))
}

func TestPersistentLogNewerFormatIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	content := "# hclsh-history 2.0.0\n#@session x 2026-01-01T00:00:00Z\nold = 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	l, err := OpenPersistentLog(path)
	require.NoError(t, err)
	require.NoError(t, l.Append("new = 2"))
	require.NoError(t, l.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(raw))
}

func TestPersistentLogWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("legacy = 1\nlegacy = 2\n"), 0o600))

	l, err := OpenPersistentLog(path)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, []string{"legacy = 1", "legacy = 2"}, l.Previous())
}

package chatlog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesOneFilePerRoom(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir)
	defer logger.Close()

	logger.Append(1, "alice", "hello")
	logger.Append(1, "bob", "hi back")
	logger.Append(2, "alice", "other room")

	data, err := os.ReadFile(filepath.Join(dir, "chatroom_1.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	linePattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} - alice: hello$`)
	assert.Regexp(t, linePattern, lines[0])
	assert.Contains(t, lines[1], "bob: hi back")

	other, err := os.ReadFile(filepath.Join(dir, "chatroom_2.log"))
	require.NoError(t, err)
	assert.Contains(t, string(other), "alice: other room")
}

func TestCloseThenAppendReopensFile(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir)

	logger.Append(1, "alice", "before close")
	require.NoError(t, logger.Close())

	logger.Append(1, "alice", "after close")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "chatroom_1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "before close")
	assert.Contains(t, string(data), "after close")
}

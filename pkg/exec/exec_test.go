package exec

import (
	"bytes"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCommandExecutor(t *testing.T) {
	m := &MockCommandExecutor{}
	path, err := m.LookPath("vi")
	require.NoError(t, err)
	assert.Equal(t, "/path/to/vi", path)

	require.NoError(t, m.Run("vi", "a.txt"))
	require.NoError(t, m.Run("true"))
	assert.Equal(t, []string{"vi a.txt", "true"}, m.Commands)

	m.RunFunc = func(string, ...string) error { return errors.New("boom") }
	assert.EqualError(t, m.Run("vi"), "boom")
}

func TestRealCommandExecutor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	var out bytes.Buffer
	e := &RealCommandExecutor{Stdout: &out}

	require.NoError(t, e.Run("sh", "-c", "echo hello"))
	assert.Equal(t, "hello\n", out.String())

	err := e.Run("sh", "-c", "exit 3")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)

	_, err = e.LookPath("definitely-not-a-real-binary-name")
	assert.Error(t, err)
}

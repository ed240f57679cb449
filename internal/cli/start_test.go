package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danang/antria/internal/config"
)

func TestStartCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()
		startCmd := cmd.Commands()

		found := false
		for _, c := range startCmd {
			if c.Name() == "start" {
				found = true
				break
			}
		}
		assert.True(t, found, "start command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"start", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Start the Antria daemon service")
	})
}

func TestPIDFilePath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/var/lib/antria"

	path := pidFilePath(cfg)
	assert.Equal(t, filepath.Join("/var/lib/antria", "antria.pid"), path)
}

func TestIsRunning(t *testing.T) {
	t.Run("no pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "nonexistent.pid")

		running := isRunning(pidFile)
		assert.False(t, running)
	})

	t.Run("invalid pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "invalid.pid")

		err := os.WriteFile(pidFile, []byte("invalid"), 0644)
		require.NoError(t, err)

		running := isRunning(pidFile)
		assert.False(t, running)
	})

	t.Run("own process", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "own.pid")

		err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
		require.NoError(t, err)

		running := isRunning(pidFile)
		assert.True(t, running)
	})
}

func TestReadPID(t *testing.T) {
	t.Run("valid pid", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "valid.pid")

		err := os.WriteFile(pidFile, []byte("12345"), 0644)
		require.NoError(t, err)

		pid, err := readPID(pidFile)
		require.NoError(t, err)
		assert.Equal(t, 12345, pid)
	})

	t.Run("missing file", func(t *testing.T) {
		tmpDir := t.TempDir()

		_, err := readPID(filepath.Join(tmpDir, "missing.pid"))
		assert.Error(t, err)
	})

	t.Run("garbage content", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "garbage.pid")

		err := os.WriteFile(pidFile, []byte("not-a-pid"), 0644)
		require.NoError(t, err)

		_, err = readPID(pidFile)
		assert.Error(t, err)
	})
}

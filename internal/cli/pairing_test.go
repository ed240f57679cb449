package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempConfig(t *testing.T, content string) {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "antria.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
}

func TestPairingCommand(t *testing.T) {
	t.Run("subcommands exist", func(t *testing.T) {
		cmd := GetRootCmd()

		found := map[string]bool{}
		for _, c := range cmd.Commands() {
			if c.Name() == "pairing" {
				for _, sub := range c.Commands() {
					found[sub.Name()] = true
				}
			}
		}
		assert.True(t, found["list"], "pairing list should exist")
		assert.True(t, found["approve"], "pairing approve should exist")
		assert.True(t, found["reject"], "pairing reject should exist")
	})
}

func TestLoadPairingManager(t *testing.T) {
	t.Run("empty channel", func(t *testing.T) {
		_, err := loadPairingManager("")
		assert.Error(t, err)
	})

	t.Run("telegram bootstrap allowlist", func(t *testing.T) {
		tmpDir := t.TempDir()
		withTempConfig(t, `{"data_dir": "`+tmpDir+`", "telegram": {"allowlist": ["628111", "628222"]}}`)

		manager, err := loadPairingManager("telegram")
		require.NoError(t, err)

		assert.True(t, manager.IsAllowed("628111"))
		assert.True(t, manager.IsAllowed("628222"))
		assert.False(t, manager.IsAllowed("628333"))
	})

	t.Run("approve unknown code", func(t *testing.T) {
		tmpDir := t.TempDir()
		withTempConfig(t, `{"data_dir": "`+tmpDir+`"}`)

		manager, err := loadPairingManager("telegram")
		require.NoError(t, err)

		_, err = manager.Approve("NOPE")
		assert.Error(t, err)
	})
}

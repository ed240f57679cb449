package pairing

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ManagerOptions) *Manager {
	t.Helper()
	if opts.Channel == "" {
		opts.Channel = "telegram"
	}
	if opts.PendingPath == "" || opts.AllowlistPath == "" {
		pending, allowlist := DefaultPaths(t.TempDir(), opts.Channel)
		opts.PendingPath = pending
		opts.AllowlistPath = allowlist
	}
	m, err := NewManager(opts)
	require.NoError(t, err)
	return m
}

func TestManager_RequiresChannel(t *testing.T) {
	_, err := NewManager(ManagerOptions{})
	assert.Error(t, err)
}

func TestManager_EnsurePendingCreatesCode(t *testing.T) {
	m := newTestManager(t, ManagerOptions{})

	req, created, err := m.EnsurePending("628123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "628123", req.SenderID)
	assert.Len(t, req.Code, CodeLength)
	for _, r := range req.Code {
		assert.Contains(t, codeAlphabet, string(r))
	}

	// Second call returns the same request
	again, created, err := m.EnsurePending("628123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, req.Code, again.Code)
}

func TestManager_ApproveAllowlistsSender(t *testing.T) {
	m := newTestManager(t, ManagerOptions{})

	req, _, err := m.EnsurePending("628123")
	require.NoError(t, err)
	assert.False(t, m.IsAllowed("628123"))

	resolved, err := m.Approve(strings.ToLower(req.Code))
	require.NoError(t, err)
	assert.Equal(t, "628123", resolved.SenderID)
	assert.True(t, m.IsAllowed("628123"))
	assert.Empty(t, m.ListPending())

	_, _, err = m.EnsurePending("628123")
	assert.ErrorIs(t, err, ErrAlreadyAllowlisted)
}

func TestManager_RejectDropsRequest(t *testing.T) {
	m := newTestManager(t, ManagerOptions{})

	req, _, err := m.EnsurePending("628123")
	require.NoError(t, err)

	_, err = m.Reject(req.Code)
	require.NoError(t, err)
	assert.False(t, m.IsAllowed("628123"))
	assert.Empty(t, m.ListPending())

	_, err = m.Approve(req.Code)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestManager_PendingLimit(t *testing.T) {
	m := newTestManager(t, ManagerOptions{MaxPending: 2})

	_, _, err := m.EnsurePending("a")
	require.NoError(t, err)
	_, _, err = m.EnsurePending("b")
	require.NoError(t, err)
	_, _, err = m.EnsurePending("c")
	assert.ErrorIs(t, err, ErrPendingLimitReached)
}

func TestManager_PendingExpiry(t *testing.T) {
	current := time.Now()
	m := newTestManager(t, ManagerOptions{
		PendingTTL: time.Minute,
		Now:        func() time.Time { return current },
	})

	req, _, err := m.EnsurePending("628123")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	assert.Empty(t, m.ListPending())
	_, err = m.Approve(req.Code)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestManager_BootstrapAllowlist(t *testing.T) {
	m := newTestManager(t, ManagerOptions{BootstrapAllowlist: []string{"999", " "}})

	assert.True(t, m.IsAllowed("999"))
	assert.False(t, m.IsAllowed(""))
	_, _, err := m.EnsurePending("999")
	assert.ErrorIs(t, err, ErrAlreadyAllowlisted)
}

func TestManager_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	pending, allowlist := DefaultPaths(dir, "telegram")

	m1 := newTestManager(t, ManagerOptions{PendingPath: pending, AllowlistPath: allowlist})
	req, _, err := m1.EnsurePending("628123")
	require.NoError(t, err)
	_, err = m1.Approve(req.Code)
	require.NoError(t, err)

	m2 := newTestManager(t, ManagerOptions{PendingPath: pending, AllowlistPath: allowlist})
	assert.True(t, m2.IsAllowed("628123"))
	entries := m2.ListAllowlist()
	require.Len(t, entries, 1)
	assert.Equal(t, "628123", entries[0].SenderID)
}

func TestDefaultPaths(t *testing.T) {
	pending, allowlist := DefaultPaths("/data", "telegram")
	assert.Equal(t, filepath.Join("/data", "pairing", "telegram-pending.json"), pending)
	assert.Equal(t, filepath.Join("/data", "pairing", "telegram-allowlist.json"), allowlist)
}

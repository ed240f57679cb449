package pairing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultPendingLimit = 3
	DefaultPendingTTL   = time.Hour
	CodeLength          = 8
)

var (
	ErrPendingLimitReached = errors.New("pairing pending limit reached")
	ErrRequestNotFound     = errors.New("pairing request not found")
	ErrAlreadyAllowlisted  = errors.New("sender is already allowlisted")
)

// Ambiguous characters (0/O, 1/I/L) are excluded so codes survive
// being read aloud to an operator.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// PendingRequest represents a pending pairing request for a sender.
type PendingRequest struct {
	Channel     string    `json:"channel"`
	SenderID    string    `json:"sender_id"`
	Code        string    `json:"code"`
	RequestedAt time.Time `json:"requested_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AllowlistEntry represents an approved sender.
type AllowlistEntry struct {
	SenderID string    `json:"sender_id"`
	AddedAt  time.Time `json:"added_at"`
	Reason   string    `json:"reason,omitempty"`
}

// ManagerOptions configures a pairing manager.
type ManagerOptions struct {
	Channel            string
	PendingPath        string
	AllowlistPath      string
	MaxPending         int
	PendingTTL         time.Duration
	BootstrapAllowlist []string
	Now                func() time.Time
}

// jsonFile persists a JSON document and remembers the mod time it last
// saw, so a manager in one process (the CLI) notices edits made by
// another (the daemon).
type jsonFile struct {
	path    string
	modTime time.Time
}

func (f *jsonFile) changedOnDisk() bool {
	if f.path == "" {
		return false
	}
	info, err := os.Stat(f.path)
	return err == nil && info.ModTime().After(f.modTime)
}

func (f *jsonFile) load(v interface{}) error {
	if f.path == "" {
		return nil
	}
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", f.path, err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	f.modTime = info.ModTime()
	return nil
}

func (f *jsonFile) save(v interface{}, now time.Time) error {
	if f.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return err
	}
	f.modTime = now
	return nil
}

// Manager gates which senders a channel will talk to. Unknown senders
// get a short pairing code an operator approves or rejects; approved
// senders land on a persisted allowlist.
type Manager struct {
	mu sync.Mutex

	channel    string
	maxPending int
	pendingTTL time.Duration
	now        func() time.Time

	pendingFile   jsonFile
	allowlistFile jsonFile

	pending   map[string]PendingRequest
	allowlist map[string]AllowlistEntry
	bootstrap map[string]bool
}

type pendingStore struct {
	Requests []PendingRequest `json:"requests"`
}

type allowlistStore struct {
	Entries []AllowlistEntry `json:"entries"`
}

// NewManager creates a new pairing manager.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if strings.TrimSpace(opts.Channel) == "" {
		return nil, fmt.Errorf("pairing channel is required")
	}

	m := &Manager{
		channel:       opts.Channel,
		maxPending:    opts.MaxPending,
		pendingTTL:    opts.PendingTTL,
		now:           opts.Now,
		pendingFile:   jsonFile{path: strings.TrimSpace(opts.PendingPath)},
		allowlistFile: jsonFile{path: strings.TrimSpace(opts.AllowlistPath)},
		bootstrap:     make(map[string]bool),
	}
	if m.pendingTTL <= 0 {
		m.pendingTTL = DefaultPendingTTL
	}
	if m.maxPending <= 0 {
		m.maxPending = DefaultPendingLimit
	}
	if m.now == nil {
		m.now = time.Now
	}

	for _, senderID := range opts.BootstrapAllowlist {
		if senderID = strings.TrimSpace(senderID); senderID != "" {
			m.bootstrap[senderID] = true
		}
	}

	if err := m.loadAllowlist(); err != nil {
		return nil, err
	}
	if err := m.loadPending(); err != nil {
		return nil, err
	}
	return m, nil
}

// Channel returns the channel associated with the manager.
func (m *Manager) Channel() string {
	return m.channel
}

// IsAllowed returns true if the sender is allowlisted.
func (m *Manager) IsAllowed(senderID string) bool {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked()

	if m.bootstrap[senderID] {
		return true
	}
	_, ok := m.allowlist[senderID]
	return ok
}

// ListAllowlist returns allowlisted senders, oldest first.
func (m *Manager) ListAllowlist() []AllowlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked()

	entries := make([]AllowlistEntry, 0, len(m.allowlist))
	for _, entry := range m.allowlist {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
	return entries
}

// ListPending returns active pending pairing requests, oldest first.
func (m *Manager) ListPending() []PendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked()
	m.pruneLocked()

	requests := make([]PendingRequest, 0, len(m.pending))
	for _, req := range m.pending {
		requests = append(requests, req)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].RequestedAt.Before(requests[j].RequestedAt)
	})
	return requests
}

// EnsurePending returns a pending request for the sender, creating one if needed.
// The returned boolean indicates whether a new request was created.
func (m *Manager) EnsurePending(senderID string) (PendingRequest, bool, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return PendingRequest{}, false, fmt.Errorf("sender id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked()
	m.pruneLocked()

	if m.bootstrap[senderID] {
		return PendingRequest{}, false, ErrAlreadyAllowlisted
	}
	if _, ok := m.allowlist[senderID]; ok {
		return PendingRequest{}, false, ErrAlreadyAllowlisted
	}
	if existing, ok := m.pending[senderID]; ok {
		return existing, false, nil
	}
	if len(m.pending) >= m.maxPending {
		return PendingRequest{}, false, ErrPendingLimitReached
	}

	code, err := m.newCodeLocked()
	if err != nil {
		return PendingRequest{}, false, err
	}

	now := m.now()
	request := PendingRequest{
		Channel:     m.channel,
		SenderID:    senderID,
		Code:        code,
		RequestedAt: now,
		ExpiresAt:   now.Add(m.pendingTTL),
	}
	m.pending[senderID] = request

	if err := m.savePendingLocked(); err != nil {
		return PendingRequest{}, false, err
	}
	return request, true, nil
}

// Approve approves a pending pairing request by code.
func (m *Manager) Approve(code string) (PendingRequest, error) {
	return m.resolve(code, true)
}

// Reject rejects a pending pairing request by code.
func (m *Manager) Reject(code string) (PendingRequest, error) {
	return m.resolve(code, false)
}

func (m *Manager) resolve(code string, approve bool) (PendingRequest, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return PendingRequest{}, fmt.Errorf("code is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked()
	m.pruneLocked()

	request, ok := m.findByCodeLocked(code)
	if !ok {
		return PendingRequest{}, ErrRequestNotFound
	}
	delete(m.pending, request.SenderID)

	if approve {
		m.allowlist[request.SenderID] = AllowlistEntry{
			SenderID: request.SenderID,
			AddedAt:  m.now(),
			Reason:   fmt.Sprintf("approved via code %s", code),
		}
		if err := m.saveAllowlistLocked(); err != nil {
			return PendingRequest{}, err
		}
	}

	if err := m.savePendingLocked(); err != nil {
		return PendingRequest{}, err
	}
	return request, nil
}

func (m *Manager) findByCodeLocked(code string) (PendingRequest, bool) {
	for _, req := range m.pending {
		if strings.ToUpper(req.Code) == code {
			return req, true
		}
	}
	return PendingRequest{}, false
}

func (m *Manager) pruneLocked() {
	now := m.now()
	changed := false
	for senderID, req := range m.pending {
		if now.After(req.ExpiresAt) {
			delete(m.pending, senderID)
			changed = true
		}
	}
	if changed {
		_ = m.savePendingLocked()
	}
}

// syncLocked reloads whichever backing files another process has
// rewritten since they were last read.
func (m *Manager) syncLocked() {
	if m.pendingFile.changedOnDisk() {
		_ = m.loadPending()
	}
	if m.allowlistFile.changedOnDisk() {
		_ = m.loadAllowlist()
	}
}

func (m *Manager) newCodeLocked() (string, error) {
	for i := 0; i < 5; i++ {
		code, err := gonanoid.Generate(codeAlphabet, CodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate pairing code: %w", err)
		}
		if _, exists := m.findByCodeLocked(strings.ToUpper(code)); !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique pairing code")
}

func (m *Manager) loadPending() error {
	m.pending = make(map[string]PendingRequest)

	var store pendingStore
	if err := m.pendingFile.load(&store); err != nil {
		return err
	}
	for _, req := range store.Requests {
		if senderID := strings.TrimSpace(req.SenderID); senderID != "" && strings.TrimSpace(req.Code) != "" {
			m.pending[senderID] = req
		}
	}
	m.pruneLocked()
	return nil
}

func (m *Manager) loadAllowlist() error {
	m.allowlist = make(map[string]AllowlistEntry)

	var store allowlistStore
	if err := m.allowlistFile.load(&store); err != nil {
		return err
	}
	for _, entry := range store.Entries {
		if senderID := strings.TrimSpace(entry.SenderID); senderID != "" {
			m.allowlist[senderID] = entry
		}
	}
	return nil
}

func (m *Manager) savePendingLocked() error {
	store := pendingStore{Requests: make([]PendingRequest, 0, len(m.pending))}
	for _, req := range m.pending {
		store.Requests = append(store.Requests, req)
	}
	sort.Slice(store.Requests, func(i, j int) bool {
		return store.Requests[i].RequestedAt.Before(store.Requests[j].RequestedAt)
	})
	return m.pendingFile.save(store, m.now())
}

func (m *Manager) saveAllowlistLocked() error {
	store := allowlistStore{Entries: make([]AllowlistEntry, 0, len(m.allowlist))}
	for _, entry := range m.allowlist {
		store.Entries = append(store.Entries, entry)
	}
	sort.Slice(store.Entries, func(i, j int) bool {
		return store.Entries[i].AddedAt.Before(store.Entries[j].AddedAt)
	})
	return m.allowlistFile.save(store, m.now())
}

// DefaultPaths returns default pending/allowlist file paths for a channel.
func DefaultPaths(dataDir, channel string) (string, string) {
	base := filepath.Join(strings.TrimSpace(dataDir), "pairing")
	return filepath.Join(base, fmt.Sprintf("%s-pending.json", channel)),
		filepath.Join(base, fmt.Sprintf("%s-allowlist.json", channel))
}

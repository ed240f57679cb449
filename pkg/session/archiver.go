package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Episode is one closed-out conversation: the outbound log accumulated
// between the menu being sent and the session being marked done.
type Episode struct {
	SenderID   string    `json:"sender_id"`
	Entries    []string  `json:"entries"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Archiver appends closed episodes to per-sender JSONL files. The live
// session store stays purely in memory; the archive is an audit artifact
// and is never read back into the store.
type Archiver struct {
	dir        string
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewArchiver creates the archive directory if needed.
func NewArchiver(dir string) (*Archiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	a := &Archiver{
		dir:        dir,
		writeLocks: make(map[string]*sync.Mutex),
	}

	log.Info().Str("dir", dir).Msg("Episode archiver initialized")
	return a, nil
}

// validateSenderID rejects identifiers that could escape the archive dir.
func (a *Archiver) validateSenderID(senderID string) error {
	if senderID == "" {
		return fmt.Errorf("sender id cannot be empty")
	}
	if strings.Contains(senderID, "..") {
		return fmt.Errorf("sender id cannot contain '..'")
	}
	if strings.ContainsAny(senderID, "/\\") {
		return fmt.Errorf("sender id cannot contain path separators")
	}
	if strings.Contains(senderID, "\x00") {
		return fmt.Errorf("sender id cannot contain null bytes")
	}
	return nil
}

func (a *Archiver) episodePath(senderID string) string {
	return filepath.Join(a.dir, senderID+".jsonl")
}

func (a *Archiver) getWriteLock(senderID string) *sync.Mutex {
	a.locksMu.Lock()
	defer a.locksMu.Unlock()

	if lock, exists := a.writeLocks[senderID]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	a.writeLocks[senderID] = lock
	return lock
}

// Archive appends one episode for the sender. Empty logs are skipped;
// there is nothing worth keeping from an episode that never progressed.
func (a *Archiver) Archive(senderID string, entries []string) error {
	if err := a.validateSenderID(senderID); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	episode := Episode{
		SenderID:   senderID,
		Entries:    append([]string{}, entries...),
		ArchivedAt: time.Now(),
	}

	data, err := json.Marshal(episode)
	if err != nil {
		return fmt.Errorf("failed to marshal episode: %w", err)
	}

	lock := a.getWriteLock(senderID)
	lock.Lock()
	defer lock.Unlock()

	file, err := os.OpenFile(a.episodePath(senderID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open episode file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write episode: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync episode file: %w", err)
	}

	log.Debug().
		Str("sender_id", senderID).
		Int("entries", len(entries)).
		Msg("Episode archived")

	return nil
}

// LoadEpisodes reads all archived episodes for a sender. Corrupted lines
// are skipped rather than failing the whole read.
func (a *Archiver) LoadEpisodes(senderID string) ([]Episode, error) {
	if err := a.validateSenderID(senderID); err != nil {
		return nil, err
	}

	file, err := os.Open(a.episodePath(senderID))
	if err != nil {
		if os.IsNotExist(err) {
			return []Episode{}, nil
		}
		return nil, fmt.Errorf("failed to open episode file: %w", err)
	}
	defer file.Close()

	var episodes []Episode
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var episode Episode
		if err := json.Unmarshal([]byte(line), &episode); err != nil {
			log.Warn().
				Str("sender_id", senderID).
				Int("line", lineNum).
				Err(err).
				Msg("Failed to parse episode line, skipping")
			continue
		}
		episodes = append(episodes, episode)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read episode file: %w", err)
	}

	return episodes, nil
}

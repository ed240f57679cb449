package replies

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Reserved control tokens. They arrive on the same inbound-text channel
// as ordinary user messages and are emitted by the operator gateway, not
// by end users.
const (
	TokenSelected = "!SELECTED"
	TokenDone     = "!DONE"
)

// MenuChoiceQueue is the menu reply that joins the support queue.
const MenuChoiceQueue = "1"

// Set holds every outbound text the conversation engine can produce.
type Set struct {
	Menu          string `json:"menu"`
	Queue         string `json:"queue"`
	Attending     string `json:"attending"`
	End           string `json:"end"`
	Fallback      string `json:"fallback"`
	QueueReminder string `json:"queue_reminder"`
}

// Defaults returns the reference reply texts.
func Defaults() Set {
	return Set{
		Menu:          "<Menu>",
		Queue:         "<Queue>",
		Attending:     "<Attending>",
		End:           "<END>",
		Fallback:      "?",
		QueueReminder: "You are still in the queue. An operator will be with you shortly.",
	}
}

// Validate rejects sets with empty texts; an empty outbound would be
// dropped by the transport and leave the log inconsistent.
func (s Set) Validate() error {
	fields := map[string]string{
		"menu":      s.Menu,
		"queue":     s.Queue,
		"attending": s.Attending,
		"end":       s.End,
		"fallback":  s.Fallback,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("reply text %q cannot be empty", name)
		}
	}
	return nil
}

// Provider hands out the current reply set. A plain Set satisfies most
// callers; the Loader below adds hot reload behind the same interface.
type Provider interface {
	Current() Set
}

// Static is a fixed reply set.
type Static struct {
	set Set
}

// NewStatic wraps a set as a Provider.
func NewStatic(set Set) *Static {
	return &Static{set: set}
}

// Current returns the wrapped set.
func (s *Static) Current() Set {
	return s.set
}

// holder is the shared mutable slot used by Loader.
type holder struct {
	mu  sync.RWMutex
	set Set
}

func (h *holder) get() Set {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.set
}

func (h *holder) put(set Set) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.set = set
}

// ReadFile loads a reply set from a JSON file, filling missing fields
// from the defaults.
func ReadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read replies file: %w", err)
	}

	set := Defaults()
	if err := json.Unmarshal(data, &set); err != nil {
		return Set{}, fmt.Errorf("failed to parse replies file: %w", err)
	}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

package gateway

import (
	"sort"
	"sync"
	"time"
)

// idleAfter is how long a console goes without traffic before it is
// reported as idle.
const idleAfter = 5 * time.Minute

// ClientRegistry tracks connected operator consoles and which senders
// each console is currently attending. Attendance follows successful
// queue.select and session.done calls so a disconnect can be correlated
// with the conversations the operator left behind.
type ClientRegistry struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	attending map[string]map[string]bool
}

// NewClientRegistry creates an empty console registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients:   make(map[string]*Client),
		attending: make(map[string]map[string]bool),
	}
}

// Add registers a newly connected console.
func (r *ClientRegistry) Add(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = client
}

// Remove drops a console and forgets its attendance.
func (r *ClientRegistry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
	delete(r.attending, clientID)
}

// Get retrieves a console by ID.
func (r *ClientRegistry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, exists := r.clients[clientID]
	return client, exists
}

func (r *ClientRegistry) filter(keep func(*Client) bool) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		if keep(client) {
			out = append(out, client)
		}
	}
	return out
}

// GetAll returns every connected console.
func (r *ClientRegistry) GetAll() []*Client {
	return r.filter(func(*Client) bool { return true })
}

// GetAuthenticatedClients returns consoles that completed the
// challenge-response handshake.
func (r *ClientRegistry) GetAuthenticatedClients() []*Client {
	return r.filter(func(c *Client) bool { return c.Authenticated })
}

// Count returns the number of connected consoles.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// MarkAttending records that a console pulled a sender out of the queue.
func (r *ClientRegistry) MarkAttending(clientID, senderID string) {
	if senderID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[clientID]; !exists {
		return
	}
	if r.attending[clientID] == nil {
		r.attending[clientID] = make(map[string]bool)
	}
	r.attending[clientID][senderID] = true
}

// ClearAttending forgets one attended sender for a console.
func (r *ClientRegistry) ClearAttending(clientID, senderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attending[clientID], senderID)
}

// AttendingSenders lists the senders a console is currently attending,
// sorted for stable output.
func (r *ClientRegistry) AttendingSenders(clientID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attendingLocked(clientID)
}

func (r *ClientRegistry) attendingLocked(clientID string) []string {
	senders := make([]string, 0, len(r.attending[clientID]))
	for senderID := range r.attending[clientID] {
		senders = append(senders, senderID)
	}
	sort.Strings(senders)
	return senders
}

// GetConnectedClients returns a snapshot of every console for the
// clients.list method, attendance included.
func (r *ClientRegistry) GetConnectedClients() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	infos := make([]ClientInfo, 0, len(r.clients))
	for _, client := range r.clients {
		infos = append(infos, ClientInfo{
			ID:            client.ID,
			Authenticated: client.Authenticated,
			ConnectedAt:   client.ConnectedAt,
			LastActivity:  client.LastActivity,
			IPAddress:     client.IPAddress,
			Idle:          now.Sub(client.LastActivity) > idleAfter,
			Attending:     r.attendingLocked(client.ID),
		})
	}
	return infos
}

// UpdateActivity stamps a console's last activity time.
func (r *ClientRegistry) UpdateActivity(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, exists := r.clients[clientID]; exists {
		client.LastActivity = time.Now()
	}
}

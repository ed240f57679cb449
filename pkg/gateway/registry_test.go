package gateway

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danang/antria/pkg/session"
)

func addTestConsole(reg *ClientRegistry, id string) {
	reg.Add(&Client{
		ID:            id,
		Authenticated: true,
		ConnectedAt:   time.Now(),
		LastActivity:  time.Now(),
	})
}

func TestClientRegistryAttendance(t *testing.T) {
	reg := NewClientRegistry()
	addTestConsole(reg, "console-a")
	addTestConsole(reg, "console-b")

	reg.MarkAttending("console-a", "628222")
	reg.MarkAttending("console-a", "628111")
	reg.MarkAttending("console-b", "628333")

	assert.Equal(t, []string{"628111", "628222"}, reg.AttendingSenders("console-a"))
	assert.Equal(t, []string{"628333"}, reg.AttendingSenders("console-b"))

	reg.ClearAttending("console-a", "628222")
	assert.Equal(t, []string{"628111"}, reg.AttendingSenders("console-a"))

	// Clearing a sender the console never attended is harmless
	reg.ClearAttending("console-a", "620000")
	assert.Equal(t, []string{"628111"}, reg.AttendingSenders("console-a"))
}

func TestClientRegistryAttendanceUnknownConsole(t *testing.T) {
	reg := NewClientRegistry()

	reg.MarkAttending("ghost", "628111")
	assert.Empty(t, reg.AttendingSenders("ghost"))

	reg.MarkAttending("console-a", "")
	assert.Empty(t, reg.AttendingSenders("console-a"))
}

func TestClientRegistryRemoveForgetsAttendance(t *testing.T) {
	reg := NewClientRegistry()
	addTestConsole(reg, "console-a")
	reg.MarkAttending("console-a", "628111")

	reg.Remove("console-a")
	assert.Empty(t, reg.AttendingSenders("console-a"))

	// A reconnect under the same ID starts clean
	addTestConsole(reg, "console-a")
	assert.Empty(t, reg.AttendingSenders("console-a"))
}

func TestClientRegistrySnapshotCarriesAttendance(t *testing.T) {
	reg := NewClientRegistry()
	addTestConsole(reg, "console-a")
	reg.MarkAttending("console-a", "628222")
	reg.MarkAttending("console-a", "628111")

	infos := reg.GetConnectedClients()
	require.Len(t, infos, 1)
	assert.Equal(t, "console-a", infos[0].ID)
	assert.Equal(t, []string{"628111", "628222"}, infos[0].Attending)
	assert.False(t, infos[0].Idle)
}

func TestAttendanceFollowsQueueCalls(t *testing.T) {
	store := session.NewMemoryStore(zerolog.Nop())
	sess := store.GetOrCreate("628111")
	sess.State = session.StateQueued
	store.Put("628111", sess)

	srv := newTestGateway(t, store, nil, nil)
	conn, cleanup := dialTestGateway(t, srv, "test-secret")
	defer cleanup()

	require.NoError(t, conn.WriteJSON(RPCRequest{
		ID:      "1",
		Method:  "queue.select",
		JSONRPC: "2.0",
		Params:  map[string]interface{}{"senderId": "628111"},
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp RPCResponse
	require.NoError(t, conn.ReadJSON(&resp))
	require.Nil(t, resp.Error)

	consoles := srv.clients.GetAll()
	require.Len(t, consoles, 1)
	consoleID := consoles[0].ID
	assert.Equal(t, []string{"628111"}, srv.clients.AttendingSenders(consoleID))

	require.NoError(t, conn.WriteJSON(RPCRequest{
		ID:      "2",
		Method:  "session.done",
		JSONRPC: "2.0",
		Params:  map[string]interface{}{"senderId": "628111"},
	}))
	require.NoError(t, conn.ReadJSON(&resp))
	require.Nil(t, resp.Error)

	assert.Empty(t, srv.clients.AttendingSenders(consoleID))
}

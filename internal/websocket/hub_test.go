package websocket

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

// receive pops the next queued message for a client, failing the test
// if nothing arrives in time.
func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

// drain discards everything currently queued for a client.
func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func onlineSetFrom(t *testing.T, msg *Message) []string {
	t.Helper()
	require.Equal(t, MessageTypeOnlineUsers, msg.Type)
	var payload OnlineUsersPayload
	require.NoError(t, msg.ParsePayload(&payload))
	return payload.UserIDs
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.allClients)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.unicast)
	assert.NotNil(t, hub.handlers)
}

func TestRegisterBroadcastsOnlineSet(t *testing.T) {
	hub := NewHub()
	alice := NewClient(hub, nil, "aaaaaaaaaaaaaaaaaaaaaaaa")

	hub.registerClient(alice)

	got := onlineSetFrom(t, receive(t, alice))
	assert.Equal(t, []string{"aaaaaaaaaaaaaaaaaaaaaaaa"}, got)
}

func TestEveryConnectionSeesMembershipChanges(t *testing.T) {
	hub := NewHub()
	alice := NewClient(hub, nil, "aaaaaaaaaaaaaaaaaaaaaaaa")
	bob := NewClient(hub, nil, "bbbbbbbbbbbbbbbbbbbbbbbb")

	hub.registerClient(alice)
	drain(alice)

	hub.registerClient(bob)

	aliceView := onlineSetFrom(t, receive(t, alice))
	bobView := onlineSetFrom(t, receive(t, bob))
	assert.ElementsMatch(t, []string{"aaaaaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbbbbb"}, aliceView)
	assert.ElementsMatch(t, []string{"aaaaaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbbbbb"}, bobView)

	hub.unregisterClient(bob)

	aliceView = onlineSetFrom(t, receive(t, alice))
	assert.Equal(t, []string{"aaaaaaaaaaaaaaaaaaaaaaaa"}, aliceView)
}

func TestAnonymousConnectionNeverJoinsOnlineSet(t *testing.T) {
	hub := NewHub()
	anon := NewClient(hub, nil, "")
	alice := NewClient(hub, nil, "aaaaaaaaaaaaaaaaaaaaaaaa")

	hub.registerClient(anon)
	got := onlineSetFrom(t, receive(t, anon))
	assert.Empty(t, got)

	// Anonymous connections still receive broadcasts
	hub.registerClient(alice)
	got = onlineSetFrom(t, receive(t, anon))
	assert.Equal(t, []string{"aaaaaaaaaaaaaaaaaaaaaaaa"}, got)

	assert.False(t, hub.IsUserOnline(""))
}

func TestSecondConnectionReplacesFirst(t *testing.T) {
	hub := NewHub()
	userID := "aaaaaaaaaaaaaaaaaaaaaaaa"
	first := NewClient(hub, nil, userID)
	second := NewClient(hub, nil, userID)

	hub.registerClient(first)
	hub.registerClient(second)
	drain(first)
	drain(second)

	// Deliveries now go to the newer connection only
	hub.sendToUser(userID, NewMessage(MessageTypeNewMessage, map[string]string{"text": "hi"}))
	got := receive(t, second)
	assert.Equal(t, MessageTypeNewMessage, got.Type)

	select {
	case <-first.send:
		t.Fatal("stale connection received a targeted delivery")
	default:
	}
}

func TestStaleDisconnectDoesNotEvictNewerConnection(t *testing.T) {
	hub := NewHub()
	userID := "aaaaaaaaaaaaaaaaaaaaaaaa"
	first := NewClient(hub, nil, userID)
	second := NewClient(hub, nil, userID)

	hub.registerClient(first)
	hub.registerClient(second)

	// The replaced connection finally disconnects
	hub.unregisterClient(first)

	assert.True(t, hub.IsUserOnline(userID))
	assert.Contains(t, hub.OnlineUsers(), userID)

	hub.unregisterClient(second)
	assert.False(t, hub.IsUserOnline(userID))
}

func TestDeliverToUserOffline(t *testing.T) {
	hub := NewHub()

	err := hub.DeliverToUser("cccccccccccccccccccccccc", NewMessage(MessageTypeNewMessage, nil))
	assert.ErrorIs(t, err, ErrRecipientOffline)
}

func TestDeliverToUserOnline(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.cancel()

	alice := NewClient(hub, nil, "aaaaaaaaaaaaaaaaaaaaaaaa")
	hub.Register(alice)

	// Wait for the register event to be processed
	got := receive(t, alice)
	assert.Equal(t, MessageTypeOnlineUsers, got.Type)

	err := hub.DeliverToUser("aaaaaaaaaaaaaaaaaaaaaaaa", NewMessage(MessageTypeNewMessage, map[string]string{"text": "hi"}))
	require.NoError(t, err)

	got = receive(t, alice)
	assert.Equal(t, MessageTypeNewMessage, got.Type)
}

func TestSendAfterDisconnectFailsCleanly(t *testing.T) {
	hub := NewHub()
	alice := NewClient(hub, nil, "aaaaaaaaaaaaaaaaaaaaaaaa")

	hub.registerClient(alice)
	hub.unregisterClient(alice)

	// The read side may still try to reply after the hub dropped the
	// client. That must fail with an error, never a panic.
	err := alice.Send(NewMessage(MessageTypePong, nil))
	require.Error(t, err)
	require.Error(t, alice.Send(NewMessage(MessageTypePong, nil)))
}

func TestPongRepliesToPing(t *testing.T) {
	hub := NewHub()
	alice := NewClient(hub, nil, "aaaaaaaaaaaaaaaaaaaaaaaa")
	hub.registerClient(alice)
	drain(alice)

	alice.handleMessage(&Message{
		Type:    MessageTypePing,
		ID:      "ping-1",
		Payload: PingPayload{ClientTime: 1234},
	})

	got := receive(t, alice)
	assert.Equal(t, MessageTypePong, got.Type)
	assert.Equal(t, "ping-1", got.ReplyTo)

	var pong PongPayload
	require.NoError(t, got.ParsePayload(&pong))
	assert.Equal(t, int64(1234), pong.ClientTime)
}

func TestUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()
	ghost := NewClient(hub, nil, "aaaaaaaaaaaaaaaaaaaaaaaa")

	// Never registered, must not panic or close anything twice
	hub.unregisterClient(ghost)
	hub.unregisterClient(ghost)
	assert.False(t, hub.IsUserOnline("aaaaaaaaaaaaaaaaaaaaaaaa"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "request %d should be allowed", i+1)
	}

	assert.False(t, rl.Allow(), "request 11 should be denied")

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "request after wait should be allowed")
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("test_error", "Something went wrong")

	assert.Equal(t, MessageTypeError, msg.Type)

	payload, ok := msg.Payload.(ErrorPayload)
	assert.True(t, ok)
	assert.Equal(t, "test_error", payload.Code)
	assert.Equal(t, "Something went wrong", payload.Message)
}

func TestMessageParsePayload(t *testing.T) {
	msg := NewMessage(MessageTypeMarkSeen, map[string]interface{}{
		"conversationId": "abc123",
	})

	var payload MarkSeenPayload
	err := msg.ParsePayload(&payload)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", payload.ConversationID)
}

func TestNormalizeUserID(t *testing.T) {
	valid := "507f1f77bcf86cd799439011"
	assert.Equal(t, valid, normalizeUserID(valid))
	assert.Equal(t, "", normalizeUserID(""))
	assert.Equal(t, "", normalizeUserID("undefined"))
	assert.Equal(t, "", normalizeUserID("null"))
	assert.Equal(t, "", normalizeUserID("not-an-object-id"))
}

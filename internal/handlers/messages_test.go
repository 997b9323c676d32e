package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/websocket"
)

func TestSendMessageCreatesConversation(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
		Message:     "hi bob",
	}, cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	conv, err := env.convs.FindByParticipants(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", conv.LastMessage.Text)
	assert.Equal(t, alice.ID, conv.LastMessage.Sender)
	assert.False(t, conv.LastMessage.Seen)

	msgs, err := env.msgs.ListByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Seen)
}

func TestSendMessageReusesConversation(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceCookie := env.createUser(t, "alice")
	bob, bobCookie := env.createUser(t, "bob")

	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
		Message:     "first",
	}, aliceCookie)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: alice.ID.Hex(),
		Message:     "second",
	}, bobCookie)
	require.Equal(t, http.StatusCreated, w.Code)

	conv, err := env.convs.FindByParticipants(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	msgs, err := env.msgs.ListByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "second", conv.LastMessage.Text)
}

func TestSendMessagePushesToOnlineRecipient(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	env.dispatcher.online[bob.ID.Hex()] = true

	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
		Message:     "you there?",
	}, cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	events := env.dispatcher.events()
	require.Len(t, events, 1)
	assert.Equal(t, bob.ID.Hex(), events[0].UserID)
	assert.Equal(t, websocket.MessageTypeNewMessage, events[0].Message.Type)
}

func TestSendMessageOfflineRecipientStillStored(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	// Bob is offline, delivery is skipped silently
	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
		Message:     "read this later",
	}, cookie)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, env.dispatcher.events())

	conv, err := env.convs.FindByParticipants(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	msgs, _ := env.msgs.ListByConversation(context.Background(), conv.ID)
	assert.Len(t, msgs, 1)
}

func TestSendMessageStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	env.dispatcher.online[bob.ID.Hex()] = true
	env.msgs.insertErr = errors.New("write concern timeout")

	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
		Message:     "doomed",
	}, cookie)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// No push when the store write failed
	assert.Empty(t, env.dispatcher.events())
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	// Neither text nor image
	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
	}, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Messaging yourself
	w = env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: alice.ID.Hex(),
		Message:     "dear diary",
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown recipient
	w = env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: "000000000000000000000000",
		Message:     "hello?",
	}, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMessagesRequiresExistingConversation(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	w := env.do(t, http.MethodGet, "/api/messages/"+bob.ID.Hex(), nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMessagesReturnsHistory(t *testing.T) {
	env := newTestEnv(t)
	_, aliceCookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
		Message:     "one",
	}, aliceCookie)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/messages/"+bob.ID.Hex(), nil, aliceCookie)
	require.Equal(t, http.StatusOK, w.Code)

	var msgs []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", msgs[0].Text)
}

func TestGetConversationsJoinsParticipants(t *testing.T) {
	env := newTestEnv(t)
	_, aliceCookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	w := env.do(t, http.MethodPost, "/api/messages", SendMessageRequest{
		RecipientID: bob.ID.Hex(),
		Message:     "hello",
	}, aliceCookie)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/messages/conversations", nil, aliceCookie)
	require.Equal(t, http.StatusOK, w.Code)

	var convs []ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Participants, 1)
	assert.Equal(t, "bob", convs[0].Participants[0].Username)
	assert.Equal(t, "hello", convs[0].LastMessage.Text)
}

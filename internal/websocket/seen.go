package websocket

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
)

// seenTimeout bounds the database work for a single mark-seen request.
const seenTimeout = 10 * time.Second

// SeenCoordinator marks a conversation's messages as read and notifies
// the other participant in real time when they are online.
type SeenCoordinator struct {
	hub           *Hub
	conversations repository.ConversationStore
	messages      repository.MessageStore
}

// NewSeenCoordinator creates a seen-receipt coordinator.
func NewSeenCoordinator(hub *Hub, conversations repository.ConversationStore, messages repository.MessageStore) *SeenCoordinator {
	return &SeenCoordinator{
		hub:           hub,
		conversations: conversations,
		messages:      messages,
	}
}

// Attach registers the coordinator's message handler on the hub.
func (sc *SeenCoordinator) Attach() {
	sc.hub.RegisterHandler(MessageTypeMarkSeen, sc.HandleMarkSeen)
}

// HandleMarkSeen processes a markMessagesAsSeen request from a client.
// The requester's identity comes from the registered connection, so
// anonymous connections are rejected. The bulk update and the
// conversation preview update run first; the notification to the other
// participant is sent only if both writes succeed and they are online.
func (sc *SeenCoordinator) HandleMarkSeen(client *Client, message *Message) error {
	if client.UserID == "" {
		return fmt.Errorf("anonymous connection cannot mark messages as seen")
	}

	var payload MarkSeenPayload
	if err := message.ParsePayload(&payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	conversationID, err := primitive.ObjectIDFromHex(payload.ConversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q", payload.ConversationID)
	}

	requesterID, err := primitive.ObjectIDFromHex(client.UserID)
	if err != nil {
		return fmt.Errorf("malformed user id on connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), seenTimeout)
	defer cancel()

	conv, err := sc.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	otherID, ok := conv.OtherParticipant(requesterID)
	if !ok {
		return fmt.Errorf("user is not a participant of conversation %s", payload.ConversationID)
	}

	modified, err := sc.messages.MarkConversationSeen(ctx, conversationID, requesterID)
	if err != nil {
		return fmt.Errorf("mark messages seen: %w", err)
	}

	if err := sc.conversations.MarkLastMessageSeen(ctx, conversationID); err != nil {
		return fmt.Errorf("mark last message seen: %w", err)
	}

	logger.Log.Debug("Conversation marked seen",
		logger.WithUserID(client.UserID),
		logger.WithConversationID(payload.ConversationID),
		zap.Int64("messages", modified))

	// Best-effort notification. The receipt is durable either way.
	err = sc.hub.DeliverToUser(otherID.Hex(), NewMessage(MessageTypeMessagesSeen, MessagesSeenPayload{
		ConversationID: payload.ConversationID,
	}))
	if err != nil && err != ErrRecipientOffline {
		logger.Log.Warn("Failed to deliver seen receipt",
			logger.WithConversationID(payload.ConversationID),
			zap.Error(err))
	}

	return nil
}

// Deliverer is the delivery surface NotifyNewMessage needs. *Hub
// implements it.
type Deliverer interface {
	DeliverToUser(userID string, message *Message) error
}

// NotifyNewMessage delivers a newMessage event to the recipient if they
// are online. Offline recipients read the message from the store later.
func NotifyNewMessage(d Deliverer, recipientID primitive.ObjectID, msg *models.Message) {
	err := d.DeliverToUser(recipientID.Hex(), NewMessage(MessageTypeNewMessage, msg))
	if err != nil && err != ErrRecipientOffline {
		logger.Log.Warn("Failed to deliver new message event",
			zap.String("recipient", recipientID.Hex()),
			zap.Error(err))
	}
}

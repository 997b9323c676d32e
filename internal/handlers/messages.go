package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/auth"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/util"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/websocket"
)

// SendMessageRequest is the payload for sending a direct message
type SendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
	Message     string `json:"message"`
	Img         string `json:"img"`
}

// ConversationParticipant is the joined identity shown in conversation
// lists
type ConversationParticipant struct {
	ID         primitive.ObjectID `json:"_id"`
	Username   string             `json:"username"`
	ProfilePic string             `json:"profilePic"`
}

// ConversationResponse is a conversation with participant identities
// joined in
type ConversationResponse struct {
	ID           primitive.ObjectID        `json:"_id"`
	Participants []ConversationParticipant `json:"participants"`
	LastMessage  models.LastMessage        `json:"lastMessage"`
}

// SendMessage stores a direct message and pushes it to the recipient
// when they are online. Offline recipients pick it up from the store.
func (h *Handlers) SendMessage(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if req.Message == "" && req.Img == "" {
		util.RespondValidationError(c, "message", "a message needs text or an image")
		return
	}

	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		util.RespondBadRequest(c, "invalid recipient id")
		return
	}
	if recipientID == user.ID {
		util.RespondBadRequest(c, "you cannot message yourself")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetByID(ctx, recipientID); err != nil {
		util.RespondNotFound(c, "recipient")
		return
	}

	conv, err := h.conversations.FindByParticipants(ctx, user.ID, recipientID)
	if errors.Is(err, repository.ErrNotFound) {
		conv = &models.Conversation{
			Participants: []primitive.ObjectID{user.ID, recipientID},
			LastMessage:  models.LastMessage{Text: req.Message, Sender: user.ID},
		}
		if err := h.conversations.Create(ctx, conv); err != nil {
			util.RespondInternalError(c, "failed to create conversation")
			return
		}
	} else if err != nil {
		util.RespondInternalError(c, "failed to load conversation")
		return
	}

	img, err := h.resolveImage(ctx, user.ID.Hex(), req.Img)
	if err != nil {
		logger.ErrorWithFields("Failed to store message image", err)
		util.RespondInternalError(c, "failed to store image")
		return
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Sender:         user.ID,
		Text:           req.Message,
		Img:            img,
	}
	if err := h.messages.Insert(ctx, msg); err != nil {
		logger.ErrorWithFields("Failed to store message", err,
			logger.WithConversationID(conv.ID.Hex()))
		util.RespondInternalError(c, "failed to send message")
		return
	}

	if err := h.conversations.UpdateLastMessage(ctx, conv.ID, models.LastMessage{
		Text:   req.Message,
		Sender: user.ID,
	}); err != nil {
		logger.ErrorWithFields("Failed to update conversation preview", err,
			logger.WithConversationID(conv.ID.Hex()))
	}

	// Best-effort real-time push
	if h.dispatcher != nil {
		websocket.NotifyNewMessage(h.dispatcher, recipientID, msg)
	}

	c.JSON(201, msg)
}

// GetMessages returns the full history with another user. 404 when no
// conversation exists yet.
func (h *Handlers) GetMessages(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	otherID, err := primitive.ObjectIDFromHex(c.Param("otherUserId"))
	if err != nil {
		util.RespondBadRequest(c, "invalid user id")
		return
	}

	ctx := c.Request.Context()
	conv, err := h.conversations.FindByParticipants(ctx, user.ID, otherID)
	if err != nil {
		util.RespondNotFound(c, "conversation")
		return
	}

	msgs, err := h.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		util.RespondInternalError(c, "failed to load messages")
		return
	}

	c.JSON(200, msgs)
}

// GetConversations lists the requester's conversations, most recently
// active first, with participant identities joined in
func (h *Handlers) GetConversations(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	convs, err := h.conversations.ListForUser(ctx, user.ID)
	if err != nil {
		util.RespondInternalError(c, "failed to load conversations")
		return
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		resp := ConversationResponse{
			ID:          conv.ID,
			LastMessage: conv.LastMessage,
		}
		for _, pid := range conv.Participants {
			if pid == user.ID {
				continue
			}
			participant, err := h.users.GetByID(ctx, pid)
			if err != nil {
				// Deleted account, keep the conversation with a placeholder
				resp.Participants = append(resp.Participants, ConversationParticipant{ID: pid})
				continue
			}
			resp.Participants = append(resp.Participants, ConversationParticipant{
				ID:         participant.ID,
				Username:   participant.Username,
				ProfilePic: participant.ProfilePic,
			})
		}
		out = append(out, resp)
	}

	c.JSON(200, out)
}

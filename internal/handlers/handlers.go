// Package handlers implements the REST API.
package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/auth"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/storage"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/websocket"
)

// Dispatcher pushes real-time events to online users. Delivery is
// best-effort; an offline recipient is not an error for the caller.
type Dispatcher interface {
	DeliverToUser(userID string, message *websocket.Message) error
	IsUserOnline(userID string) bool
}

// Handlers holds the dependencies shared by all route handlers
type Handlers struct {
	auth          *auth.Service
	users         repository.UserRepository
	posts         repository.PostRepository
	conversations repository.ConversationStore
	messages      repository.MessageStore
	uploader      storage.ImageUploader
	dispatcher    Dispatcher
}

// New creates the handler set. uploader may be nil when image storage
// is not configured; image fields are then stored as given.
func New(
	authSvc *auth.Service,
	users repository.UserRepository,
	posts repository.PostRepository,
	conversations repository.ConversationStore,
	messages repository.MessageStore,
	uploader storage.ImageUploader,
	dispatcher Dispatcher,
) *Handlers {
	return &Handlers{
		auth:          authSvc,
		users:         users,
		posts:         posts,
		conversations: conversations,
		messages:      messages,
		uploader:      uploader,
		dispatcher:    dispatcher,
	}
}

// RegisterRoutes mounts the REST API under /api
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	protected := h.auth.Middleware()

	users := router.Group("/api/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.POST("/logout", h.Logout)
		users.GET("/profile/:query", h.GetUserProfile)
		users.GET("/suggested", protected, h.GetSuggestedUsers)
		users.POST("/follow/:id", protected, h.FollowUnfollowUser)
		users.PUT("/update/:id", protected, h.UpdateUser)
		users.PUT("/freeze", protected, h.FreezeAccount)
	}

	posts := router.Group("/api/posts")
	{
		posts.POST("/create", protected, h.CreatePost)
		posts.GET("/feed", protected, h.GetFeedPosts)
		posts.GET("/user/:username", h.GetUserPosts)
		posts.GET("/:id", h.GetPost)
		posts.PUT("/:id", protected, h.UpdatePost)
		posts.DELETE("/:id", protected, h.DeletePost)
		posts.PUT("/like/:id", protected, h.LikeUnlikePost)
		posts.PUT("/reply/:id", protected, h.ReplyToPost)
	}

	messages := router.Group("/api/messages", protected)
	{
		messages.POST("", h.SendMessage)
		messages.GET("/conversations", h.GetConversations)
		messages.GET("/:otherUserId", h.GetMessages)
	}
}

// resolveImage turns an image field into a stored URL. Data URIs are
// decoded and uploaded; anything else (a URL or empty string) passes
// through unchanged.
func (h *Handlers) resolveImage(ctx context.Context, userID, img string) (string, error) {
	if img == "" || h.uploader == nil || !strings.HasPrefix(img, "data:") {
		return img, nil
	}

	meta, data, ok := strings.Cut(img, ",")
	if !ok {
		return "", fmt.Errorf("malformed data URI")
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	filename := "image" + extensionFromDataURI(meta)
	result, err := h.uploader.UploadImage(ctx, decoded, userID, filename)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return result.URL, nil
}

// deleteStoredImage removes an uploaded image. Failures are logged and
// swallowed; a leaked object never blocks the request.
func (h *Handlers) deleteStoredImage(ctx context.Context, url string) {
	if url == "" || h.uploader == nil {
		return
	}
	key := storage.KeyFromURL(url)
	if key == "" {
		return
	}
	if err := h.uploader.DeleteImage(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete stored image",
			zap.String("key", key), zap.Error(err))
	}
}

func extensionFromDataURI(meta string) string {
	switch {
	case strings.Contains(meta, "image/png"):
		return ".png"
	case strings.Contains(meta, "image/gif"):
		return ".gif"
	case strings.Contains(meta, "image/webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

package handlers

import (
	"fmt"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/auth"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/util"
)

// CreatePostRequest is the payload for creating a post
type CreatePostRequest struct {
	PostedBy string `json:"postedBy"`
	Text     string `json:"text" binding:"required"`
	Img      string `json:"img"`
}

// UpdatePostRequest carries the editable post fields
type UpdatePostRequest struct {
	Text string `json:"text" binding:"required"`
	Img  string `json:"img"`
}

// ReplyRequest is the payload for replying to a post
type ReplyRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreatePost publishes a new post for the authenticated user
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if req.PostedBy != "" && req.PostedBy != user.ID.Hex() {
		util.RespondForbidden(c, "you cannot create a post for another user")
		return
	}

	if utf8.RuneCountInString(req.Text) > models.MaxPostTextLength {
		util.RespondValidationError(c, "text",
			fmt.Sprintf("text must be at most %d characters", models.MaxPostTextLength))
		return
	}

	ctx := c.Request.Context()
	img, err := h.resolveImage(ctx, user.ID.Hex(), req.Img)
	if err != nil {
		logger.ErrorWithFields("Failed to store post image", err)
		util.RespondInternalError(c, "failed to store image")
		return
	}

	post := &models.Post{
		PostedBy: user.ID,
		Text:     req.Text,
		Img:      img,
	}
	if err := h.posts.Create(ctx, post); err != nil {
		logger.ErrorWithFields("Failed to create post", err)
		util.RespondInternalError(c, "failed to create post")
		return
	}

	c.JSON(201, post)
}

// GetPost returns a single post by id
func (h *Handlers) GetPost(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		util.RespondBadRequest(c, "invalid post id")
		return
	}

	post, err := h.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	c.JSON(200, post)
}

// UpdatePost edits a post's text. Only the owner may edit.
func (h *Handlers) UpdatePost(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		util.RespondBadRequest(c, "invalid post id")
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if utf8.RuneCountInString(req.Text) > models.MaxPostTextLength {
		util.RespondValidationError(c, "text",
			fmt.Sprintf("text must be at most %d characters", models.MaxPostTextLength))
		return
	}

	ctx := c.Request.Context()
	post, err := h.posts.GetByID(ctx, id)
	if err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.PostedBy != user.ID {
		util.RespondForbidden(c, "you cannot edit another user's post")
		return
	}

	post.Text = req.Text
	if req.Img != "" && req.Img != post.Img {
		img, err := h.resolveImage(ctx, user.ID.Hex(), req.Img)
		if err != nil {
			util.RespondInternalError(c, "failed to store image")
			return
		}
		h.deleteStoredImage(ctx, post.Img)
		post.Img = img
	}
	if err := h.posts.Update(ctx, post); err != nil {
		util.RespondInternalError(c, "failed to update post")
		return
	}

	c.JSON(200, post)
}

// DeletePost removes a post. Only the owner may delete.
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		util.RespondBadRequest(c, "invalid post id")
		return
	}

	ctx := c.Request.Context()
	post, err := h.posts.GetByID(ctx, id)
	if err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.PostedBy != user.ID {
		util.RespondForbidden(c, "you cannot delete another user's post")
		return
	}

	if err := h.posts.Delete(ctx, id); err != nil {
		util.RespondInternalError(c, "failed to delete post")
		return
	}
	h.deleteStoredImage(ctx, post.Img)

	c.JSON(200, gin.H{"message": "post deleted successfully"})
}

// LikeUnlikePost toggles the requester's like on a post
func (h *Handlers) LikeUnlikePost(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		util.RespondBadRequest(c, "invalid post id")
		return
	}

	ctx := c.Request.Context()
	post, err := h.posts.GetByID(ctx, id)
	if err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	liked := false
	for _, likerID := range post.Likes {
		if likerID == user.ID {
			liked = true
			break
		}
	}

	if liked {
		err = h.posts.Unlike(ctx, id, user.ID)
	} else {
		err = h.posts.Like(ctx, id, user.ID)
	}
	if err != nil {
		util.RespondInternalError(c, "failed to update like")
		return
	}

	if liked {
		c.JSON(200, gin.H{"message": "post unliked successfully"})
	} else {
		c.JSON(200, gin.H{"message": "post liked successfully"})
	}
}

// ReplyToPost appends a reply carrying the author's embedded identity
func (h *Handlers) ReplyToPost(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		util.RespondBadRequest(c, "invalid post id")
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	reply := models.Reply{
		UserID:         user.ID,
		Text:           req.Text,
		Username:       user.Username,
		UserProfilePic: user.ProfilePic,
	}

	if err := h.posts.AddReply(c.Request.Context(), id, reply); err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	c.JSON(200, reply)
}

// GetFeedPosts returns posts from everyone the requester follows
func (h *Handlers) GetFeedPosts(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	posts, err := h.posts.Feed(c.Request.Context(), user.Following)
	if err != nil {
		util.RespondInternalError(c, "failed to load feed")
		return
	}

	c.JSON(200, posts)
}

// GetUserPosts returns a user's posts, newest first
func (h *Handlers) GetUserPosts(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.users.GetByUsername(ctx, c.Param("username"))
	if err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	posts, err := h.posts.ByAuthor(ctx, user.ID)
	if err != nil {
		util.RespondInternalError(c, "failed to load posts")
		return
	}

	c.JSON(200, posts)
}

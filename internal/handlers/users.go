package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/auth"
	apierrors "github.com/Ebunwadi/SoftwareDevelopmentProject/internal/errors"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/util"
)

// allowedEmailDomain restricts signups to university accounts.
const allowedEmailDomain = "@coventry.ac.uk"

// SignupRequest is the payload for creating an account
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=2,max=30"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the payload for logging in
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest carries the editable profile fields
type UpdateUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	ProfilePic string `json:"profilePic"`
	Bio        string `json:"bio"`
}

// Signup creates an account and opens a session
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.HasSuffix(email, allowedEmailDomain) {
		util.RespondValidationError(c, "email", "only "+allowedEmailDomain+" emails are allowed")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetByEmailOrUsername(ctx, email, req.Username); err == nil {
		util.RespondWithAPIError(c, apierrors.AlreadyExists("user"))
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		util.RespondInternalError(c, "failed to check existing users")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		util.RespondInternalError(c, "failed to create account")
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    email,
		Username: req.Username,
		Password: hash,
	}
	if err := h.users.Create(ctx, user); err != nil {
		logger.ErrorWithFields("Failed to create user", err)
		util.RespondInternalError(c, "failed to create account")
		return
	}

	token, _, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		util.RespondInternalError(c, "failed to open session")
		return
	}
	h.auth.SetSessionCookie(c, token)

	logger.Log.Info("User signed up",
		logger.WithUserID(user.ID.Hex()),
		zap.String("username", user.Username))

	c.JSON(201, user.Public())
}

// Login verifies credentials and opens a session. Logging in unfreezes
// a frozen account.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil {
		util.RespondBadRequest(c, "invalid username or password")
		return
	}

	if !h.auth.CheckPassword(user.Password, req.Password) {
		util.RespondBadRequest(c, "invalid username or password")
		return
	}

	if user.IsFrozen {
		if err := h.users.SetFrozen(ctx, user.ID, false); err != nil {
			util.RespondInternalError(c, "failed to unfreeze account")
			return
		}
		user.IsFrozen = false
	}

	token, _, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		util.RespondInternalError(c, "failed to open session")
		return
	}
	h.auth.SetSessionCookie(c, token)

	c.JSON(200, user.Public())
}

// Logout clears the session cookie
func (h *Handlers) Logout(c *gin.Context) {
	h.auth.ClearSessionCookie(c)
	c.JSON(200, gin.H{"message": "user logged out successfully"})
}

// GetUserProfile looks a user up by username or by object id
func (h *Handlers) GetUserProfile(c *gin.Context) {
	query := c.Param("query")
	ctx := c.Request.Context()

	var user *models.User
	var err error
	if id, idErr := primitive.ObjectIDFromHex(query); idErr == nil {
		user, err = h.users.GetByID(ctx, id)
	} else {
		user, err = h.users.GetByUsername(ctx, query)
	}
	if err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	c.JSON(200, user.Public())
}

// GetSuggestedUsers returns a handful of users the requester does not
// follow yet
func (h *Handlers) GetSuggestedUsers(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	suggested, err := h.users.Suggested(c.Request.Context(), user.ID, user.Following, 4)
	if err != nil {
		util.RespondInternalError(c, "failed to load suggestions")
		return
	}

	c.JSON(200, suggested)
}

// FollowUnfollowUser toggles the follow relationship with another user
func (h *Handlers) FollowUnfollowUser(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		util.RespondBadRequest(c, "invalid user id")
		return
	}
	if targetID == user.ID {
		util.RespondBadRequest(c, "you cannot follow or unfollow yourself")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetByID(ctx, targetID); err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	following := false
	for _, id := range user.Following {
		if id == targetID.Hex() {
			following = true
			break
		}
	}

	if following {
		err = h.users.Unfollow(ctx, user.ID, targetID)
	} else {
		err = h.users.Follow(ctx, user.ID, targetID)
	}
	if err != nil {
		util.RespondInternalError(c, "failed to update follow state")
		return
	}

	if following {
		c.JSON(200, gin.H{"message": "user unfollowed successfully"})
	} else {
		c.JSON(200, gin.H{"message": "user followed successfully"})
	}
}

// UpdateUser edits the requester's own profile. A changed username or
// profile picture is propagated into every reply the user has left.
func (h *Handlers) UpdateUser(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	if c.Param("id") != user.ID.Hex() {
		util.RespondForbidden(c, "you cannot update another user's profile")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	if req.Password != "" {
		hash, err := h.auth.HashPassword(req.Password)
		if err != nil {
			util.RespondInternalError(c, "failed to update password")
			return
		}
		user.Password = hash
	}

	if req.ProfilePic != "" {
		url, err := h.resolveImage(ctx, user.ID.Hex(), req.ProfilePic)
		if err != nil {
			logger.ErrorWithFields("Failed to store profile picture", err)
			util.RespondInternalError(c, "failed to store profile picture")
			return
		}
		user.ProfilePic = url
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}

	if err := h.users.Update(ctx, user); err != nil {
		util.RespondInternalError(c, "failed to update profile")
		return
	}

	// Replies embed the author's identity, keep them in sync
	if err := h.posts.UpdateReplyIdentity(ctx, user.ID, user.Username, user.ProfilePic); err != nil {
		logger.ErrorWithFields("Failed to propagate identity into replies", err,
			logger.WithUserID(user.ID.Hex()))
	}

	c.JSON(200, user.Public())
}

// FreezeAccount hides the account until the next login
func (h *Handlers) FreezeAccount(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		util.RespondUnauthorized(c)
		return
	}

	if err := h.users.SetFrozen(c.Request.Context(), user.ID, true); err != nil {
		util.RespondInternalError(c, "failed to freeze account")
		return
	}

	c.JSON(200, gin.H{"success": true})
}

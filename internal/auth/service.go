package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/util"
)

// CookieName is the session cookie carrying the signed JWT.
const CookieName = "jwt"

// ContextUserKey is the gin context key the middleware stores the
// authenticated user under.
const ContextUserKey = "user"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service handles all authentication operations
type Service struct {
	jwtSecret []byte
	jwtExpiry time.Duration
	users     repository.UserRepository
}

// NewService creates a new authentication service
func NewService(jwtSecret []byte, jwtExpiry time.Duration, users repository.UserRepository) *Service {
	if jwtExpiry <= 0 {
		jwtExpiry = 15 * 24 * time.Hour
	}
	return &Service{
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		users:     users,
	}
}

// HashPassword hashes a plaintext password with bcrypt.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *Service) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken creates a signed JWT for the user.
func (s *Service) GenerateToken(userID primitive.ObjectID) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"userId": userID.Hex(),
		"exp":    expiresAt.Unix(),
		"iat":    time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the user id it carries.
func (s *Service) ValidateToken(tokenString string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return primitive.NilObjectID, errors.New("invalid token claims")
	}

	raw, ok := claims["userId"].(string)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid userId in token")
	}
	userID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errors.New("malformed userId in token")
	}
	return userID, nil
}

// SetSessionCookie writes the JWT as an httpOnly session cookie.
func (s *Service) SetSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.jwtExpiry.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func (s *Service) ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Middleware authenticates the request from the session cookie and
// stores the full user record in the gin context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(CookieName)
		if err != nil || cookie == "" {
			util.RespondUnauthorized(c, "authentication required")
			c.Abort()
			return
		}

		userID, err := s.ValidateToken(cookie)
		if err != nil {
			util.RespondUnauthorized(c, "invalid or expired session")
			c.Abort()
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			util.RespondUnauthorized(c, "user not found")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by Middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

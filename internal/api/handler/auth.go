package handler

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"hackmate/backend/internal/models"
	"hackmate/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// bcrypt only hashes the first 72 bytes and rejects longer input.
const maxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	*models.User
	Token string `json:"token"`
}

func avatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

// Register creates an account and returns it with a token.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		badRequest(c, "Name, email and password are required")
		return
	case !emailPattern.MatchString(req.Email):
		badRequest(c, "Invalid email format")
		return
	case len(req.Password) < minPasswordLen:
		badRequest(c, "Password must be at least 8 characters long")
		return
	case len(req.Password) > maxPasswordBytes:
		badRequest(c, "Password must be at most 72 bytes long")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		h.respondError(c, err)
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hash),
		Image:    avatarURL(req.Name),
	}
	if err := h.Storage.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		h.respondError(c, err)
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

// Login checks credentials and returns a token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		badRequest(c, "Email and password are required")
		return
	}

	user, err := h.Storage.FindUserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

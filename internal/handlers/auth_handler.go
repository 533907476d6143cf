package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/ripplegate/ripplegate/internal/helpers"
	"github.com/ripplegate/ripplegate/internal/ledger"
	"github.com/ripplegate/ripplegate/internal/middleware"
	"github.com/ripplegate/ripplegate/internal/models"
	"github.com/ripplegate/ripplegate/internal/store"
)

type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	WalletAddress  string `json:"wallet_address" binding:"required"`
	ProfilePicture string `json:"profile_picture"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if !ledger.ValidAddress(req.WalletAddress) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid wallet address.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to hash the password.")
		return
	}

	user := models.User{
		Email:          strings.ToLower(req.Email),
		Password:       string(hashedPassword),
		WalletAddress:  req.WalletAddress,
		ProfilePicture: req.ProfilePicture,
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			helpers.RespondWithError(c, http.StatusConflict, "An account with this email already exists.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create user.")
		return
	}

	h.issueToken(c, http.StatusCreated, "User registered successfully", user)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to look up user.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	h.issueToken(c, http.StatusOK, "Login successful", user)
}

func (h *Handler) Me(c *gin.Context) {
	userID, ok := helpers.CurrentUserID(c)
	if !ok {
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve user.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         user.ID,
		"email":           user.Email,
		"profile_picture": user.ProfilePicture,
		"wallet_address":  user.WalletAddress,
	})
}

func (h *Handler) issueToken(c *gin.Context, status int, message string, user models.User) {
	if h.auth.Secret == "" {
		helpers.RespondWithError(c, http.StatusInternalServerError, "JWT_SECRET not configured.")
		return
	}

	tokenString, err := helpers.GenerateToken(h.auth.Secret, user.ID, user.Email, h.auth.TokenTTL)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	if h.auth.SecureCookie {
		c.SetSameSite(http.SameSiteNoneMode)
	}
	c.SetCookie(middleware.TokenCookie, tokenString, int(h.auth.TokenTTL.Seconds()), "/", "", h.auth.SecureCookie, true)

	c.JSON(status, gin.H{
		"message": message,
		"token":   tokenString,
		"user_id": user.ID,
		"email":   user.Email,
	})
}

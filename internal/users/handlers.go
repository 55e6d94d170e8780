package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sganesh/fraudguard/internal/logging"
	"github.com/sganesh/fraudguard/internal/validation"
)

// Handler provides HTTP endpoints for account operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new users handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the account routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.GET("/user/:account", h.GetUser)
}

// Signup handles POST /signup
func (h *Handler) Signup(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	_, err := h.service.Register(c.Request.Context(), req)
	var verrs validation.ValidationErrors
	switch {
	case errors.Is(err, ErrInvalidPIN):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "PIN must be exactly 4 digits",
		})
	case errors.Is(err, ErrInvalidAccount), errors.As(err, &verrs):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, ErrAccountExists):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Account already exists",
		})
	case err != nil:
		logging.L(c.Request.Context()).Error("signup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Account created successfully",
		})
	}
}

// loginRequest is the login payload.
type loginRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	acct, err := h.service.Authenticate(c.Request.Context(), req.Account, req.Password)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Account not found",
		})
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Invalid password",
		})
	case errors.Is(err, ErrAccountDisabled):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Account is deactivated",
		})
	case err != nil:
		logging.L(c.Request.Context()).Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Login successful",
			"user": gin.H{
				"name":    acct.Name,
				"account": acct.Account,
				"phone":   acct.Phone,
			},
		})
	}
}

// GetUser handles GET /user/:account
func (h *Handler) GetUser(c *gin.Context) {
	acct, err := h.service.Get(c.Request.Context(), c.Param("account"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "User not found",
		})
		return
	}
	if err != nil {
		logging.L(c.Request.Context()).Error("get user failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return
	}

	// Hashes carry json:"-", so the sensitive fields never serialize.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    acct,
	})
}

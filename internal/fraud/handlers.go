package fraud

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sganesh/fraudguard/internal/blacklist"
	"github.com/sganesh/fraudguard/internal/logging"
	"github.com/sganesh/fraudguard/internal/transaction"
	"github.com/sganesh/fraudguard/internal/users"
)

// Handler provides the HTTP endpoints for scoring and PIN challenges.
type Handler struct {
	engine    *Engine
	challenge *Challenge
	txns      transaction.Store
	blacklist blacklist.Store
	users     users.Store
}

// NewHandler creates a new fraud handler.
func NewHandler(engine *Engine, challenge *Challenge, txns transaction.Store, blacklistStore blacklist.Store, userStore users.Store) *Handler {
	return &Handler{
		engine:    engine,
		challenge: challenge,
		txns:      txns,
		blacklist: blacklistStore,
		users:     userStore,
	}
}

// RegisterRoutes sets up the fraud routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/check_fraud", h.CheckFraud)
	r.POST("/verify_pin", h.VerifyPIN)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/blacklist", h.ListBlacklist)
	r.GET("/user/:account/transactions", h.ListUserTransactions)
}

// CheckFraud handles POST /check_fraud
func (h *Handler) CheckFraud(c *gin.Context) {
	var tx transaction.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid transaction payload: " + err.Error(),
		})
		return
	}

	result, err := h.engine.Score(c.Request.Context(), &tx, c.ClientIP(), c.GetHeader("Authorization"))
	if err != nil {
		if errors.Is(err, transaction.ErrExists) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "Transaction already scored",
			})
			return
		}
		logging.L(c.Request.Context()).Error("scoring failed", "transaction_id", tx.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to score transaction",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fraud":   result.Fraud,
		"reasons": result.Reasons,
	})
}

// pinVerificationRequest is the verify_pin payload.
type pinVerificationRequest struct {
	Account     string                  `json:"account" binding:"required"`
	PIN         string                  `json:"pin" binding:"required"`
	Transaction transaction.Transaction `json:"transaction" binding:"required"`
}

// VerifyPIN handles POST /verify_pin
func (h *Handler) VerifyPIN(c *gin.Context) {
	var req pinVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.challenge.Verify(c.Request.Context(), req.Account, req.PIN, &req.Transaction)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "User not found",
			})
			return
		}
		logging.L(c.Request.Context()).Error("pin verification failed",
			"transaction_id", req.Transaction.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.Success,
		"message": result.Message,
	})
}

// ListTransactions handles GET /transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	txns, err := h.txns.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("list transactions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list transactions",
		})
		return
	}
	if txns == nil {
		txns = []*transaction.Transaction{}
	}
	c.JSON(http.StatusOK, txns)
}

// ListBlacklist handles GET /blacklist
func (h *Handler) ListBlacklist(c *gin.Context) {
	entries, err := h.blacklist.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("list blacklist failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list blacklist",
		})
		return
	}
	if entries == nil {
		entries = []*blacklist.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// ListUserTransactions handles GET /user/:account/transactions
func (h *Handler) ListUserTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	if _, err := h.users.FindByAccount(ctx, c.Param("account")); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "User not found",
			})
			return
		}
		logging.L(ctx).Error("user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	txns, err := h.txns.ListRecent(ctx, limit)
	if err != nil {
		logging.L(ctx).Error("list recent transactions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
		return
	}
	if txns == nil {
		txns = []*transaction.Transaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": txns,
	})
}

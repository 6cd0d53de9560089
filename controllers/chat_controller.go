package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/mindease/chat"
	"github.com/cppla/mindease/utils"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ChatController exposes the support chat.
type ChatController struct {
	svc *chat.Service
}

func NewChatController(svc *chat.Service) *ChatController {
	return &ChatController{svc: svc}
}

// SendMessage stores the user's message and returns the assistant's reply.
func (c *ChatController) SendMessage(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	reply, err := c.svc.Send(ctx.Request.Context(), userID, utils.SanitizeText(req.Content))
	if err != nil {
		if respondValidation(ctx, err, 40021) {
			return
		}
		respondStoreError(ctx, err, 50020, "failed to process message")
		return
	}
	utils.Success(ctx, reply)
}

// History returns the newest messages, oldest first. limit defaults to 50.
func (c *ChatController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := defaultHistoryLimit
	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			utils.Error(ctx, http.StatusBadRequest, 40022, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	msgs, err := c.svc.History(ctx.Request.Context(), userID, limit)
	if err != nil {
		respondStoreError(ctx, err, 50021, "failed to load chat history")
		return
	}
	utils.Success(ctx, gin.H{"items": msgs})
}

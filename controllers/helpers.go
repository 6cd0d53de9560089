package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/mindease/middleware"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/store"
	"github.com/cppla/mindease/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// respondValidation answers 400 when err is a ValidationError and reports whether it did.
func respondValidation(ctx *gin.Context, err error, code int) bool {
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	utils.Respond(ctx, http.StatusBadRequest, code, ve.Error(), gin.H{"field": ve.Field})
	return true
}

// respondStoreError maps storage failures: retryable ones become 503 so the
// client knows to try again, the rest a 500 with the given code.
func respondStoreError(ctx *gin.Context, err error, code int, message string) {
	var se *store.Error
	if errors.As(err, &se) && se.Retryable() {
		utils.Logger.Warn("store unavailable", zap.String("op", se.Op), zap.Error(se.Err), zap.String(utils.RequestIDKey, ctx.GetString(utils.RequestIDKey)))
		utils.Error(ctx, http.StatusServiceUnavailable, 50300, "service temporarily unavailable, please retry")
		return
	}
	utils.Logger.Error(message, zap.Error(err), zap.String(utils.RequestIDKey, ctx.GetString(utils.RequestIDKey)))
	utils.Error(ctx, http.StatusInternalServerError, code, message)
}

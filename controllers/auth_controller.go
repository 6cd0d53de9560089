package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/mindease/config"
	"github.com/cppla/mindease/middleware"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/utils"
)

// AuthController handles account sign-up, sign-in and sessions.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Signup creates an account and signs it in.
func (a *AuthController) Signup(ctx *gin.Context) {
	type request struct {
		Name     string `json:"name" binding:"required,max=128"`
		Email    string `json:"email" binding:"required,email,max=255"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	name := utils.SanitizeText(req.Name)
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "name is required")
		return
	}
	if len(req.Password) < utils.MinPasswordLength {
		utils.Error(ctx, http.StatusBadRequest, 40002, "password must be at least 6 characters")
		return
	}
	email := normalizeEmail(req.Email)

	var count int64
	if err := a.db.WithContext(ctx.Request.Context()).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check account")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusForbidden, 40301, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	now := time.Now()
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		LastSeenAt:   &now,
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusForbidden, 40301, "email already registered")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}

	token, ok := a.issueSession(ctx, user)
	if !ok {
		return
	}
	utils.Created(ctx, gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

// Signin verifies credentials and issues a session token, returned in the
// body and as an httpOnly cookie.
func (a *AuthController) Signin(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	ip := ctx.ClientIP()
	if utils.SigninLocked(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed sign-in attempts, try again later")
		return
	}

	var user models.User
	err := a.db.WithContext(ctx.Request.Context()).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SigninFailRecord(ctx.Request.Context(), ip)
			utils.Error(ctx, http.StatusForbidden, 40302, "no account found for this email")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to load user")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		if n := utils.SigninFailRecord(ctx.Request.Context(), ip); n >= config.Get().SigninMaxFailures {
			utils.Sugar.Warnf("signin locked ip=%s failures=%d", ip, n)
		}
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}
	utils.SigninReset(ctx.Request.Context(), ip)

	now := time.Now()
	if err := a.db.WithContext(ctx.Request.Context()).Model(&user).Update("last_seen_at", now).Error; err != nil {
		utils.Sugar.Warnf("update last_seen_at failed user=%d err=%v", user.ID, err)
	}

	token, ok := a.issueSession(ctx, user)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

// Signout revokes the current token until it expires and clears the cookie.
func (a *AuthController) Signout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "unauthorized")
		return
	}

	expiresAt := time.Now().Add(utils.TokenTTL())
	if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
		if t, ok := v.(time.Time); ok {
			expiresAt = t
		}
	}

	utils.BlacklistToken(ctx.Request.Context(), token, expiresAt)
	setTokenCookie(ctx, "", -1)
	utils.Success(ctx, gin.H{"message": "signed out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
		return
	}

	utils.Success(ctx, userResponse(user))
}

func (a *AuthController) issueSession(ctx *gin.Context, user models.User) (string, bool) {
	token, expiresAt, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to generate token")
		return "", false
	}
	setTokenCookie(ctx, token, int(time.Until(expiresAt).Seconds()))
	return token, true
}

func setTokenCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookieName, value, maxAge, "/", "", config.Get().CookieSecure, true)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"last_seen_at": user.LastSeenAt,
		"created_at":   user.CreatedAt,
	}
}

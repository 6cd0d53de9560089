package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/mindease/chat"
	"github.com/cppla/mindease/checkin"
	"github.com/cppla/mindease/config"
	"github.com/cppla/mindease/controllers"
	"github.com/cppla/mindease/llm"
	"github.com/cppla/mindease/middleware"
	"github.com/cppla/mindease/recommend"
	"github.com/cppla/mindease/store"
	"github.com/cppla/mindease/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, completer llm.Completer) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())

	// Access logs go to their own rolling file; fall back to the app logger.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	logger := utils.Logger
	moods := store.NewMoodStore(db)
	chatSvc := chat.NewService(store.NewTranscriptStore(db), completer, logger)

	authController := controllers.NewAuthController(db)
	moodController := controllers.NewMoodController(
		moods,
		recommend.NewBuilder(completer, logger),
		chatSvc,
		checkin.NewMessenger(completer, logger),
		time.Duration(cfg.RecommendationCacheTTLSec)*time.Second,
	)
	chatController := controllers.NewChatController(chatSvc)
	configController := controllers.NewConfigController()

	api := r.Group("/api/v1")
	api.GET("/config/activities", configController.GetActivities)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/signin", authController.Signin)
	authGroup.POST("/signout", middleware.AuthRequired(), authController.Signout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimit(cfg.RateLimitPerMinute))

	protected.POST("/moods", moodController.CreateEntry)
	protected.GET("/moods", moodController.ListEntries)
	protected.GET("/moods/stats", moodController.Stats)
	protected.GET("/moods/recommendations", moodController.Recommendations)
	protected.GET("/moods/checkin", moodController.CheckIn)

	protected.POST("/chat/messages", middleware.RateLimit(cfg.ChatRateLimit), chatController.SendMessage)
	protected.GET("/chat/messages", chatController.History)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

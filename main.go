package main

import (
	"time"

	"github.com/cppla/mindease/config"
	"github.com/cppla/mindease/jobs"
	"github.com/cppla/mindease/llm"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/routes"
	"github.com/cppla/mindease/store"
	"github.com/cppla/mindease/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.User{}, &models.MoodEntry{}, &models.ChatMessage{})

	var completer llm.Completer = llm.Disabled{}
	if cfg.OpenAIAPIKey != "" {
		completer = llm.NewOpenAIClient(llm.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
		})
	} else {
		utils.Sugar.Warn("OPENAI_API_KEY not set, recommendations and chat replies use fallbacks")
	}

	r := routes.SetupRouter(db, completer)

	var onShutdown []func()
	if cfg.ChatRetentionDays > 0 {
		retention, err := jobs.NewRetention(store.NewTranscriptStore(db), cfg.ChatRetentionDays, time.Hour, utils.Logger)
		if err != nil {
			utils.Sugar.Fatalf("create retention job: %v", err)
		}
		if err := retention.Start(); err != nil {
			utils.Sugar.Fatalf("start retention job: %v", err)
		}
		onShutdown = append(onShutdown, func() {
			if err := retention.Stop(); err != nil {
				utils.Sugar.Warnf("stop retention job: %v", err)
			}
		})
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, onShutdown...); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/mindease/config"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/utils"
)

// ConfigController serves environment-driven UI configuration.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetActivities returns the suggested activity tags for the check-in form.
// Tags outside this list are still accepted.
func (c *ConfigController) GetActivities(ctx *gin.Context) {
	cfg := config.Get()
	activities := cfg.Activities
	if len(activities) == 0 {
		activities = config.DefaultActivities
	}
	utils.Success(ctx, gin.H{
		"activities": activities,
		"score": gin.H{
			"min": models.MinScore,
			"max": models.MaxScore,
		},
	})
}

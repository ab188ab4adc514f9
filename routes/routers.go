package routes

import (
	"affiliate/controllers"
	"affiliate/repository"
	"affiliate/services"
	"affiliate/services/logger"
	"affiliate/services/notification"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func SetupRoutes(router *gin.Engine, db *gorm.DB, redisCli *redis.Client, m *melody.Melody) {

	log := logger.NewDefaultLogger(logger.InfoLevel)
	store := repository.NewGormStore(db)

	affiliateService := services.NewAffiliateService(services.AffiliateServiceOptions{
		Store:  store,
		Redis:  redisCli,
		Logger: log,
	})
	attributionService := services.NewAttributionService(services.AttributionServiceOptions{
		Store:    store,
		Redis:    redisCli,
		Notifier: notification.NewMelodyService(m),
		Logger:   log,
	})

	affiliateController := controllers.NewAffiliateController(affiliateService, attributionService, log)

	api := router.Group("/api/affiliate")
	api.POST("/register", affiliateController.Register)
	api.POST("/track", affiliateController.Track)
	api.GET("/stats", affiliateController.Stats)
	api.GET("/referrals", affiliateController.Referrals)
	api.GET("/payouts", affiliateController.Payouts)
	api.GET("/lookup/code/:code", affiliateController.LookupCode)
	api.GET("/lookup/wallet/:address", affiliateController.LookupWallet)
	api.POST("/internal/volume", affiliateController.AttributeVolume)
}

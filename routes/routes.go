package routes

import (
	"log"

	"insulinai-backend/config"
	"insulinai-backend/controllers"
	"insulinai-backend/middlewares"
	"insulinai-backend/services"

	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	hub := services.NewRealtimeHub()
	off := services.NewOFFService()
	ai := services.NewAIService()
	history := services.NewHistoryService(config.DB)
	libre := services.NewLibreService(config.DB, hub)
	reports := services.NewReportService(config.DB)
	favorites := services.NewFavoritesService(config.DB)

	// label hints are optional: without AWS credentials the pipeline just
	// runs on text and AI vision
	var detector services.LabelDetector
	if rek, err := services.NewRekognitionService(); err == nil {
		detector = rek
	} else {
		log.Printf("rekognition disabled: %v", err)
	}

	var push *services.PushService
	if p, err := services.NewPushService(config.DB); err == nil {
		push = p
	} else {
		log.Printf("push notifications disabled: %v", err)
	}
	services.InitAlertDeps(config.DB, hub, push)

	pipeline := services.NewAnalysisService(off, ai, detector)

	analyzeCtrl := controllers.NewAnalyzeController(pipeline, history)
	foodCtrl := controllers.NewFoodController(off)
	glucoseCtrl := controllers.NewGlucoseController(libre)
	historyCtrl := controllers.NewHistoryController(history)
	reportCtrl := controllers.NewReportController(reports, favorites)
	realtimeCtrl := controllers.NewRealtimeController(hub)
	pushCtrl := controllers.NewPushController(push)

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
	}

	// Protected user routes
	user := r.Group("/user")
	user.Use(middlewares.AuthMiddleware())
	{
		user.GET("/profile", controllers.GetProfile)
		user.PUT("/settings", controllers.UpdateSettings)
		user.POST("/push", pushCtrl.RegisterDevice)
	}

	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware())
	{
		api.POST("/analyze", analyzeCtrl.Analyze)
		api.POST("/analyze/combine", analyzeCtrl.Combine)
		api.POST("/upload", controllers.UploadMealPhoto)

		api.GET("/food/search", foodCtrl.Search)
		api.GET("/food/barcode/:code", foodCtrl.Barcode)

		api.POST("/glucose/link", glucoseCtrl.Link)
		api.POST("/glucose/sync", glucoseCtrl.Sync)
		api.GET("/glucose/readings", glucoseCtrl.Readings)
		api.GET("/glucose/alerts", glucoseCtrl.Alerts)

		api.GET("/history", historyCtrl.List)
		api.GET("/history/:id", historyCtrl.Get)
		api.PATCH("/history/:id/post-glucose", historyCtrl.SetPostGlucose)
		api.DELETE("/history/:id", historyCtrl.Delete)

		api.GET("/reports", reportCtrl.Report)
		api.GET("/favorites", reportCtrl.Favorites)

		api.GET("/ws", realtimeCtrl.StreamWS)
	}

	return r
}

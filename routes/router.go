package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openink/quill/config"
	"github.com/openink/quill/controllers"
	"github.com/openink/quill/middleware"
	"github.com/openink/quill/store"
	"github.com/openink/quill/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, cache utils.PageCache) *gin.Engine {
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
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Resolve the actor on every request; gated routes add LoginRequired.
	r.Use(middleware.CurrentUser())
	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))

	r.Static("/media", cfg.MediaRoot)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	st := store.New(db)
	feedController := controllers.NewFeedController(st, cache)
	postController := controllers.NewPostController(st)
	followController := controllers.NewFollowController(st)
	authController := controllers.NewAuthController(st)
	adminController := controllers.NewAdminController(st, cache)

	// Public feeds
	r.GET("/", feedController.Index)
	r.GET("/group/:slug/", feedController.GroupFeed)
	r.GET("/profile/:username/", feedController.ProfileFeed)
	r.GET("/posts/:id/", postController.Detail)

	// Authentication endpoints
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.GET("/login/", authController.LoginForm)
	authGroup.POST("/login/", authController.Login)
	authGroup.POST("/signup/", authController.Signup)
	authGroup.POST("/logout/", middleware.LoginRequired(), authController.Logout)
	authGroup.GET("/me/", middleware.LoginRequired(), authController.Me)

	// Gated actions: anonymous actors are redirected to the login page.
	gated := r.Group("")
	gated.Use(middleware.LoginRequired())
	gated.GET("/create/", postController.CreateForm)
	gated.POST("/create/", postController.Create)
	gated.GET("/posts/:id/edit/", postController.EditForm)
	gated.POST("/posts/:id/edit/", postController.Edit)
	gated.POST("/posts/:id/comment/", postController.AddComment)
	gated.DELETE("/posts/:id/", postController.Delete)
	gated.POST("/upload/", postController.Upload)
	gated.GET("/follow/", feedController.FollowIndex)
	gated.GET("/profile/:username/follow", followController.Follow)
	gated.GET("/profile/:username/unfollow", followController.Unfollow)

	// Maintenance surface
	admin := r.Group("/admin")
	admin.Use(middleware.LoginRequired(), controllers.RequireAdmin(), middleware.RateLimitMiddleware())
	admin.GET("/groups/", adminController.ListGroups)
	admin.POST("/groups/", adminController.CreateGroup)
	admin.DELETE("/groups/:slug/", adminController.DeleteGroup)
	admin.DELETE("/users/:id/", adminController.DeleteUser)
	admin.POST("/cache/clear/", adminController.ClearCache)
	admin.GET("/stats/", adminController.Stats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "page not found")
	})

	return r
}

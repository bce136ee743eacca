package main

import (
	"time"

	"github.com/openink/quill/config"
	"github.com/openink/quill/models"
	"github.com/openink/quill/routes"
	"github.com/openink/quill/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
		&models.PageView{},
		&models.UploadedImage{},
	)

	cache := utils.NewRedisPageCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)

	r := routes.SetupRouter(db, cache)

	// Reclaim uploaded images that never made it into a post (best-effort)
	utils.StartImageSweeper(db, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

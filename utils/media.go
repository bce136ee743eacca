package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openink/quill/config"
	"github.com/openink/quill/models"
)

// maxImageSize caps post image uploads at 20MB.
const maxImageSize = 20 * 1024 * 1024

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ErrBadImage reports an upload rejected before anything was stored.
var ErrBadImage = errors.New("unsupported or oversized image")

// SaveImage writes an uploaded image under <MediaRoot>/posts/<year>/<month>/
// and returns the reference path (/media/posts/...) that Post.Image stores.
// The upload is recorded so the sweeper can reclaim it if no post ever
// references it.
func SaveImage(db *gorm.DB, uploaderID uint, file multipart.File, header *multipart.FileHeader) (string, error) {
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] || header.Size > maxImageSize {
		return "", ErrBadImage
	}

	cfg := config.Get()
	now := time.Now()
	dir := filepath.Join(cfg.MediaRoot, "posts", now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	dstPath := filepath.Join(dir, name)
	out, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	lr := &io.LimitedReader{R: file, N: maxImageSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil {
		_ = os.Remove(dstPath)
		return "", err
	}
	if written > maxImageSize {
		_ = os.Remove(dstPath)
		return "", ErrBadImage
	}

	refPath := fmt.Sprintf("/media/posts/%s/%s/%s", now.Format("2006"), now.Format("01"), name)
	absPath, _ := filepath.Abs(dstPath)
	record := models.UploadedImage{
		FilePath:   absPath,
		Path:       refPath,
		UploaderID: uploaderID,
		ExpireAt:   now.Add(time.Duration(cfg.UploadGraceMinutes) * time.Minute),
	}
	if err := db.Create(&record).Error; err != nil && Sugar != nil {
		Sugar.Warnf("failed to record uploaded image %s: %v", refPath, err)
	}
	return refPath, nil
}

// MarkImageAttached pins an uploaded image once a post references it, so the
// sweeper leaves it alone.
func MarkImageAttached(db *gorm.DB, refPath string) {
	if refPath == "" {
		return
	}
	now := time.Now()
	if err := db.Model(&models.UploadedImage{}).
		Where("path = ? AND attached_at IS NULL", refPath).
		Update("attached_at", now).Error; err != nil && Sugar != nil {
		Sugar.Warnf("failed to mark image attached %s: %v", refPath, err)
	}
}

// StartImageSweeper launches a background goroutine that periodically removes
// uploaded images that expired without ever being attached to a post. It is
// best-effort and logs failures.
func StartImageSweeper(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			var items []models.UploadedImage
			if err := db.Where("attached_at IS NULL AND expire_at <= ?", time.Now()).
				Limit(100).Find(&items).Error; err != nil {
				if Sugar != nil {
					Sugar.Warnf("image sweeper query failed: %v", err)
				}
				continue
			}
			for _, it := range items {
				if it.FilePath != "" {
					_ = os.Remove(it.FilePath)
				}
				// Remove row regardless of file deletion outcome
				if err := db.Delete(&models.UploadedImage{}, it.ID).Error; err != nil && Sugar != nil {
					Sugar.Warnf("image sweeper delete row failed: %v", err)
				}
			}
		}
	}()
}

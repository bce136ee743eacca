package models

import "time"

// UploadedImage records an image stored on disk before it is attached to a
// post. AttachedAt stays nil until some post references the path; the sweeper
// removes images that were never attached within their grace window.
type UploadedImage struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	FilePath   string     `gorm:"size:1024;not null" json:"file_path"` // filesystem path
	Path       string     `gorm:"size:1024;index;not null" json:"path"` // reference path like /media/posts/...
	UploaderID uint       `gorm:"index" json:"uploader_id"`
	AttachedAt *time.Time `json:"attached_at"`
	ExpireAt   time.Time  `gorm:"index" json:"expire_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

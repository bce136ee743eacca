package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openink/quill/config"
	"github.com/openink/quill/models"
	"github.com/openink/quill/utils"
)

// LoadConfig prepares the process-wide configuration for tests: a fixed JWT
// secret, test mode, and log files kept out of the working tree. Safe to call
// from every test; the config package loads once.
func LoadConfig(t *testing.T) config.AppConfig {
	t.Helper()
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("GIN_MODE", "test")
	_ = os.Setenv("GIN_PATH", filepath.Join(os.TempDir(), "quill_test_gin.log"))
	_ = os.Setenv("MEDIA_ROOT", filepath.Join(os.TempDir(), "quill_test_media"))
	_ = os.Setenv("ADMIN_USERNAMES", "admin")
	return config.Load()
}

// OpenTestDB returns an isolated in-memory database with the full schema
// migrated. The shared-cache name keeps the database alive across pooled
// connections while staying private to the calling test.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", sanitizeName(t.Name()), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
		&models.PageView{},
		&models.UploadedImage{},
	))
	return db
}

// CreateUser inserts a user with a known password ("password123").
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{Username: username, PasswordHash: hash}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// CreateGroup inserts a group.
func CreateGroup(t *testing.T, db *gorm.DB, title, slug string) *models.Group {
	t.Helper()
	group := models.Group{Title: title, Slug: slug, Description: "test group"}
	require.NoError(t, db.Create(&group).Error)
	return &group
}

// CreatePost inserts a post, optionally filed under a group.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, text string, group *models.Group) *models.Post {
	t.Helper()
	post := models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	require.NoError(t, db.Create(&post).Error)
	return &post
}

// AuthToken issues a token for the user, valid for the test's lifetime.
func AuthToken(t *testing.T, user *models.User) string {
	t.Helper()
	LoadConfig(t)
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)
	return token
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

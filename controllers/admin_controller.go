package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openink/quill/config"
	"github.com/openink/quill/middleware"
	"github.com/openink/quill/models"
	"github.com/openink/quill/store"
	"github.com/openink/quill/utils"
)

// AdminController hosts the maintenance surface: group management, user
// removal, page view stats and the explicit cache clear.
type AdminController struct {
	db    *gorm.DB
	store *store.Store
	cache utils.PageCache
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(st *store.Store, cache utils.PageCache) *AdminController {
	return &AdminController{db: st.DB(), store: st, cache: cache}
}

// RequireAdmin rejects actors whose username is not in the configured admin list.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !isAdmin(ctx) {
			utils.Error(ctx, http.StatusForbidden, 40310, "admin access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// ListGroups returns all groups ordered by title.
func (a *AdminController) ListGroups(ctx *gin.Context) {
	groups, err := a.store.Groups()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to list groups")
		return
	}
	utils.Success(ctx, gin.H{"groups": groups})
}

// CreateGroup adds a group. Slugs must be unique and URL-safe.
func (a *AdminController) CreateGroup(ctx *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required,min=1,max=200"`
		Slug        string `json:"slug" binding:"required,min=1,max=64"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		utils.Error(ctx, http.StatusBadRequest, 40041, "slug may only contain lowercase letters, digits and -")
		return
	}

	group := models.Group{
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug,
		Description: utils.Sanitize(req.Description),
	}
	if err := a.store.CreateGroup(&group); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			utils.Error(ctx, http.StatusBadRequest, 40042, "group with this slug already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to create group")
		return
	}
	utils.Success(ctx, gin.H{"group": group})
}

// DeleteGroup removes a group; its posts survive with their group cleared.
func (a *AdminController) DeleteGroup(ctx *gin.Context) {
	slug := ctx.Param("slug")
	if err := a.store.DeleteGroup(slug); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40409, "group not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to delete group")
		return
	}
	utils.Success(ctx, gin.H{"message": "group deleted"})
}

// DeleteUser removes a user and cascades their posts, comments and follows.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	userID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	if err := a.store.DeleteUser(userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to delete user")
		return
	}
	utils.Success(ctx, gin.H{"message": "user deleted"})
}

// ClearCache drops every cached feed page so the next request recomputes.
func (a *AdminController) ClearCache(ctx *gin.Context) {
	a.cache.Clear()
	utils.Success(ctx, gin.H{"message": "cache cleared"})
}

// Stats reports page view counts for the last seven days.
func (a *AdminController) Stats(ctx *gin.Context) {
	since := time.Now().AddDate(0, 0, -7)
	views := make([]models.PageView, 0)
	if err := a.db.Where("date >= ?", since).
		Order("date DESC, count DESC").
		Find(&views).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to load stats")
		return
	}

	var total int64
	for _, v := range views {
		total += v.Count
	}
	utils.Success(ctx, gin.H{
		"total": total,
		"views": views,
	})
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	if uname == "" {
		return false
	}
	cfg := config.Get()
	for _, u := range cfg.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

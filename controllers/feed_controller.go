package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openink/quill/store"
	"github.com/openink/quill/utils"
)

// FeedController serves the paginated feed views: global index, group pages,
// author profiles and the per-viewer follow feed.
type FeedController struct {
	store *store.Store
	cache utils.PageCache
}

// NewFeedController creates a new FeedController instance.
func NewFeedController(st *store.Store, cache utils.PageCache) *FeedController {
	return &FeedController{store: st, cache: cache}
}

// Index returns the global feed. The rendered page is served from the page
// cache when a fresh copy exists; posts created inside the TTL window stay
// invisible here until expiry or an explicit clear.
func (f *FeedController) Index(ctx *gin.Context) {
	page := parsePage(ctx.Query("page"))
	cacheKey := fmt.Sprintf("index:page=%d", page)
	if b, ok := f.cache.Get(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	feed, err := f.store.GlobalFeed(page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load feed")
		return
	}

	payload := gin.H{"page_obj": feed}
	if b, err := json.Marshal(utils.JSONResponse{Code: 0, Message: "success", Data: payload}); err == nil {
		f.cache.Set(cacheKey, b)
	}
	utils.Success(ctx, payload)
}

// GroupFeed returns the posts of one group. Unknown slugs are a 404, never an
// empty page. Group pages are not cached.
func (f *FeedController) GroupFeed(ctx *gin.Context) {
	slug := ctx.Param("slug")
	page := parsePage(ctx.Query("page"))

	group, feed, err := f.store.GroupFeed(slug, page)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40405, "group not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load group feed")
		return
	}

	utils.Success(ctx, gin.H{
		"group":    group,
		"page_obj": feed,
	})
}

// ProfileFeed returns an author's posts plus whether the viewer follows them.
func (f *FeedController) ProfileFeed(ctx *gin.Context) {
	username := ctx.Param("username")
	page := parsePage(ctx.Query("page"))

	author, feed, err := f.store.AuthorFeed(username, page)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40406, "profile not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load profile feed")
		return
	}

	following := false
	if viewerID, ok := getUserID(ctx); ok && viewerID != author.ID {
		following, _ = f.store.IsFollowing(viewerID, author.ID)
	}

	utils.Success(ctx, gin.H{
		"author":    author,
		"following": following,
		"page_obj":  feed,
	})
}

// FollowIndex returns the viewer's follow feed: posts by every author they
// follow. A viewer following nobody sees an empty page.
func (f *FeedController) FollowIndex(ctx *gin.Context) {
	viewerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40115, "unauthorized")
		return
	}
	page := parsePage(ctx.Query("page"))

	feed, err := f.store.FollowFeed(viewerID, page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load follow feed")
		return
	}
	utils.Success(ctx, gin.H{"page_obj": feed})
}

func parsePage(raw string) int {
	if p, err := strconv.Atoi(raw); err == nil && p > 0 {
		return p
	}
	return 1
}

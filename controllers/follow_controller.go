package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openink/quill/store"
	"github.com/openink/quill/utils"
)

// FollowController manages the follow/unfollow actions on profiles.
type FollowController struct {
	store *store.Store
}

// NewFollowController creates a new FollowController instance.
func NewFollowController(st *store.Store) *FollowController {
	return &FollowController{store: st}
}

// Follow subscribes the viewer to an author's posts and returns to the
// profile. Following yourself or someone you already follow is a no-op.
func (f *FollowController) Follow(ctx *gin.Context) {
	username := ctx.Param("username")
	viewerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40116, "unauthorized")
		return
	}

	author, err := f.store.UserByUsername(username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40407, "profile not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load profile")
		return
	}

	if err := f.store.Follow(viewerID, author.ID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to follow")
		return
	}

	ctx.Redirect(http.StatusFound, "/profile/"+author.Username+"/")
}

// Unfollow removes the subscription and returns to the profile. Unfollowing
// an author you do not follow is a no-op.
func (f *FollowController) Unfollow(ctx *gin.Context) {
	username := ctx.Param("username")
	viewerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40117, "unauthorized")
		return
	}

	author, err := f.store.UserByUsername(username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40408, "profile not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load profile")
		return
	}

	if err := f.store.Unfollow(viewerID, author.ID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to unfollow")
		return
	}

	ctx.Redirect(http.StatusFound, "/profile/"+author.Username+"/")
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openink/quill/middleware"
	"github.com/openink/quill/models"
	"github.com/openink/quill/store"
	"github.com/openink/quill/utils"
)

// PostController manages post CRUD and comments.
type PostController struct {
	db    *gorm.DB
	store *store.Store
}

// NewPostController creates a new PostController instance.
func NewPostController(st *store.Store) *PostController {
	return &PostController{db: st.DB(), store: st}
}

type postRequest struct {
	Text  string `json:"text" form:"text"`
	Group *uint  `json:"group" form:"group"`
	Image string `json:"image" form:"image"`
}

// bindPostRequest accepts either a JSON body or a multipart/urlencoded form.
// A multipart "image" file is stored through the media collaborator and
// replaces any image path sent alongside.
func (p *PostController) bindPostRequest(ctx *gin.Context) (*postRequest, bool) {
	var req postRequest
	contentType := ctx.ContentType()
	if contentType == "application/json" {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return nil, false
		}
	} else {
		if err := ctx.ShouldBind(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return nil, false
		}
		if file, header, err := ctx.Request.FormFile("image"); err == nil {
			userID, _ := getUserID(ctx)
			path, err := utils.SaveImage(p.db, userID, file, header)
			if err != nil {
				utils.Error(ctx, http.StatusBadRequest, 40027, "invalid image upload")
				return nil, false
			}
			req.Image = path
		}
	}

	req.Text = utils.Sanitize(strings.TrimSpace(req.Text))
	if req.Text == "" {
		respondFormError(ctx, models.PostFormFields, "text", "post text cannot be empty")
		return nil, false
	}
	return &req, true
}

// CreateForm returns the post form schema and the available groups.
func (p *PostController) CreateForm(ctx *gin.Context) {
	groups, err := p.store.Groups()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list groups")
		return
	}
	utils.Success(ctx, gin.H{
		"form":   models.PostFormFields,
		"groups": groups,
	})
}

// Create publishes a new post by the authenticated actor.
func (p *PostController) Create(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	req, ok := p.bindPostRequest(ctx)
	if !ok {
		return
	}

	if req.Group != nil {
		if _, err := p.groupByID(*req.Group); err != nil {
			respondFormError(ctx, models.PostFormFields, "group", "unknown group")
			return
		}
	}

	post := models.Post{
		Text:     req.Text,
		AuthorID: userID,
		GroupID:  req.Group,
		Image:    req.Image,
	}
	if err := p.store.CreatePost(&post); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			respondFormError(ctx, models.PostFormFields, "text", "you already published a post with this text")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to create post")
		return
	}
	utils.MarkImageAttached(p.db, post.Image)

	// The cached index feed is deliberately left alone: new posts surface
	// there only once the cache TTL runs out.

	created, err := p.store.PostByID(post.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load post")
		return
	}
	utils.Success(ctx, gin.H{"post": created})
}

// Detail returns a single post with its comments and the comment form schema.
func (p *PostController) Detail(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	post, err := p.store.PostByID(postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	comments, err := p.store.CommentsByPost(post.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load comments")
		return
	}

	utils.Success(ctx, gin.H{
		"post":     post,
		"comments": comments,
		"form":     models.CommentFormFields,
	})
}

// EditForm serves the edit page. The owner gets an editable form; any other
// authenticated actor gets the same page rendered read-only, not an error.
func (p *PostController) EditForm(ctx *gin.Context) {
	p.renderOrUpdate(ctx, false)
}

// Edit applies an edit submitted by the owner. Submissions by non-owners
// degrade to the read-only render and change nothing.
func (p *PostController) Edit(ctx *gin.Context) {
	p.renderOrUpdate(ctx, true)
}

func (p *PostController) renderOrUpdate(ctx *gin.Context, mutate bool) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
		return
	}
	post, err := p.store.PostByID(postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	if post.AuthorID != userID {
		utils.Success(ctx, gin.H{
			"post":      post,
			"read_only": true,
		})
		return
	}

	if !mutate {
		utils.Success(ctx, gin.H{
			"post":      post,
			"form":      models.PostFormFields,
			"read_only": false,
		})
		return
	}

	req, ok := p.bindPostRequest(ctx)
	if !ok {
		return
	}
	if req.Group != nil {
		if _, err := p.groupByID(*req.Group); err != nil {
			respondFormError(ctx, models.PostFormFields, "group", "unknown group")
			return
		}
	}

	updated, err := p.store.UpdatePost(post.ID, req.Text, req.Group, req.Image)
	if err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			respondFormError(ctx, models.PostFormFields, "text", "you already published a post with this text")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}
	utils.MarkImageAttached(p.db, updated.Image)
	utils.Success(ctx, gin.H{"post": updated, "read_only": false})
}

// Delete removes a post. Only the author or an admin may delete it.
func (p *PostController) Delete(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
		return
	}
	post, err := p.store.PostByID(postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}
	if post.AuthorID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	if err := p.store.DeletePost(post.ID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// AddComment attaches a comment to a post and redirects to the post detail
// page, mirroring the form flow.
func (p *PostController) AddComment(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
		return
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	if ctx.ContentType() == "application/json" {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
			return
		}
	} else if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	text := utils.Sanitize(strings.TrimSpace(req.Text))
	if text == "" {
		respondFormError(ctx, models.CommentFormFields, "text", "comment text cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	comment := models.Comment{PostID: postID, AuthorID: userID, Text: text}
	if err := p.store.CreateComment(&comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to create comment")
		return
	}

	ctx.Redirect(http.StatusFound, "/posts/"+strconv.FormatUint(uint64(postID), 10)+"/")
}

// Upload stores an image and returns the reference path to put in a post.
func (p *PostController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40114, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no image uploaded")
		return
	}

	path, err := utils.SaveImage(p.db, userID, file, header)
	if err != nil {
		if errors.Is(err, utils.ErrBadImage) {
			utils.Error(ctx, http.StatusBadRequest, 40031, "unsupported or oversized image")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to store image")
		return
	}
	utils.Success(ctx, gin.H{"path": path})
}

func (p *PostController) groupByID(id uint) (*models.Group, error) {
	var group models.Group
	if err := p.db.First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// respondFormError re-renders a form with a validation message. Nothing has
// been written when this is sent.
func respondFormError(ctx *gin.Context, form []models.FormField, field, message string) {
	utils.Respond(ctx, http.StatusBadRequest, 40010, "validation failed", gin.H{
		"form":   form,
		"errors": gin.H{field: message},
	})
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

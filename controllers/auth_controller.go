package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openink/quill/middleware"
	"github.com/openink/quill/models"
	"github.com/openink/quill/store"
	"github.com/openink/quill/utils"
)

const tokenLifetime = 72 * time.Hour

// AuthController is the minimal local identity provider. It exists so the
// redirect-to-login contract has a real target; everything beyond issuing and
// clearing tokens belongs to an external identity collaborator.
type AuthController struct {
	store *store.Store
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(st *store.Store) *AuthController {
	return &AuthController{store: st}
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Signup registers a local user account.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=2,max=30"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required,min=6,max=64"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username may only contain letters, digits and -_.")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(&user); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.Success(ctx, gin.H{"user": publicUser(user)})
}

// LoginForm serves the login page: the form schema plus the destination the
// actor was redirected away from.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"form": models.LoginFormFields,
		"next": ctx.Query("next"),
	})
}

// Login verifies credentials and issues a token, both in the response body
// and as a cookie for browser flows. The next parameter is echoed back so the
// client can resume the interrupted action.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username" binding:"required"`
		Password string `json:"password" form:"password" binding:"required"`
	}
	if ctx.ContentType() == "application/json" {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
			return
		}
	} else if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.store.UserByUsername(req.Username)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	ctx.SetCookie(middleware.AuthCookieName, token, int(tokenLifetime.Seconds()), "/", "", false, true)

	next := ctx.Query("next")
	if next == "" || !strings.HasPrefix(next, "/") {
		next = "/"
	}
	utils.Success(ctx, gin.H{
		"token": token,
		"user":  publicUser(*user),
		"next":  next,
	})
}

// Logout clears the auth cookie. Bearer tokens simply expire.
func (a *AuthController) Logout(ctx *gin.Context) {
	ctx.SetCookie(middleware.AuthCookieName, "", -1, "/", "", false, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated actor.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40118, "unauthorized")
		return
	}
	user, err := a.store.UserByID(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": publicUser(*user)})
}

func publicUser(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	}
}

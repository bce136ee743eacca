package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openink/quill/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// AuthCookieName carries the token for browser flows; API clients use the
	// Authorization header instead.
	AuthCookieName = "quill_token"
	// LoginPath is where anonymous actors are sent when they hit a gated action.
	LoginPath = "/auth/login/"
)

// CurrentUser resolves the actor identity from a bearer token or the auth
// cookie when one is present. Anonymous requests pass through untouched; every
// route runs behind this so handlers can always ask who is acting.
func CurrentUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			if cookie, err := ctx.Cookie(AuthCookieName); err == nil {
				token = cookie
			}
		}
		if token == "" {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			// Invalid or expired token degrades to anonymous rather than failing the request.
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// LoginRequired gates an action behind authentication. Anonymous actors are
// redirected to the login page carrying the original URL in the next
// parameter, so they return to the action after logging in.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, exists := ctx.Get(ContextUserIDKey); !exists {
			ctx.Redirect(http.StatusFound, LoginPath+"?next="+ctx.Request.URL.RequestURI())
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextActorKey is the key used to store the resolved services.Actor in Gin context.
	ContextActorKey = "actor"
	// TokenCookie is the cookie login sets next to returning the token.
	TokenCookie = "token"
	// LoginPath is where anonymous visitors of protected pages are sent.
	LoginPath = "/auth/login/"
)

// Actor resolves the current actor from a bearer token or the token cookie.
// Missing or invalid credentials leave the request anonymous; protected routes add LoginRequired.
func Actor(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor := services.Anonymous()
		if tokenString := bearerToken(ctx); tokenString != "" {
			if claims, err := utils.ParseToken(secret, tokenString); err == nil {
				actor = services.Authenticated(claims.UserID, claims.Username)
			} else {
				utils.Sugar.Debugw("ignoring invalid token", "path", ctx.Request.URL.Path, "err", err)
			}
		}
		ctx.Set(ContextActorKey, actor)
		ctx.Next()
	}
}

// LoginRequired redirects anonymous actors to the login page, remembering where they were going.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentActor(ctx).Authenticated {
			ctx.Next()
			return
		}
		ctx.Redirect(http.StatusFound, LoginRedirect(ctx.Request.URL.RequestURI()))
		ctx.Abort()
	}
}

// LoginRedirect builds the login URL carrying next.
func LoginRedirect(next string) string {
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// CurrentActor returns the actor stored by Actor, anonymous if none.
func CurrentActor(ctx *gin.Context) services.Actor {
	if v, ok := ctx.Get(ContextActorKey); ok {
		if actor, ok := v.(services.Actor); ok {
			return actor
		}
	}
	return services.Anonymous()
}

func bearerToken(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := ctx.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

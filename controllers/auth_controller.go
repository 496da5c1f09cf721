package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// AuthController issues bearer tokens. The token is returned in the body and set as a cookie.
type AuthController struct {
	accounts     *services.Accounts
	secureCookie bool
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(accounts *services.Accounts, secureCookie bool) *AuthController {
	return &AuthController{accounts: accounts, secureCookie: secureCookie}
}

// Register creates an account and signs the new user in.
func (a *AuthController) Register(ctx *gin.Context) {
	var form credentialsForm
	if err := bind(ctx, &form); err != nil {
		fail(ctx, err)
		return
	}
	session, err := a.accounts.Signup(ctx.Request.Context(), form.Username, form.Password)
	if err != nil {
		fail(ctx, err)
		return
	}
	a.setCookie(ctx, session.Token)
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"token": session.Token, "user": session.User})
}

// Login exchanges credentials for a token. With a safe next target the client is redirected there.
func (a *AuthController) Login(ctx *gin.Context) {
	var form credentialsForm
	if err := bind(ctx, &form); err != nil {
		fail(ctx, err)
		return
	}
	session, err := a.accounts.Login(ctx.Request.Context(), form.Username, form.Password)
	if errors.Is(err, services.ErrUnauthorized) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if err != nil {
		fail(ctx, err)
		return
	}
	a.setCookie(ctx, session.Token)
	if next := safeNext(ctx.Query("next")); next != "" {
		ctx.Redirect(http.StatusFound, next)
		return
	}
	utils.Success(ctx, gin.H{"token": session.Token, "user": session.User})
}

// LoginPage describes the login form; anonymous visitors of protected pages land here.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	action := "/auth/login"
	next := safeNext(ctx.Query("next"))
	if next != "" {
		action += "?next=" + url.QueryEscape(next)
	}
	utils.Success(ctx, gin.H{
		"form": formSkeleton(action, "username", "password"),
		"next": next,
	})
}

// Logout drops the token cookie. Bearer tokens stay valid until they expire.
func (a *AuthController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, "", -1, "/", "", a.secureCookie, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

func (a *AuthController) setCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, token, int(a.accounts.TTL().Seconds()), "/", "", a.secureCookie, true)
}

// safeNext only accepts local absolute paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// NotFound renders the 404 page for unknown routes and missing objects.
func NotFound(ctx *gin.Context) {
	utils.Respond(ctx, http.StatusNotFound, 40400, "page not found", gin.H{"path": ctx.Request.URL.Path})
}

// fail maps a service error onto the page the visitor should get.
func fail(ctx *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		NotFound(ctx)
	case errors.Is(err, services.ErrUnauthorized):
		ctx.Redirect(http.StatusFound, middleware.LoginRedirect(ctx.Request.URL.RequestURI()))
	case errors.Is(err, services.ErrForbidden):
		ctx.Redirect(http.StatusFound, "/")
	case errors.As(err, &verr):
		utils.Respond(ctx, http.StatusBadRequest, 40000, "invalid form", gin.H{"errors": verr.Fields})
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func currentActor(ctx *gin.Context) services.Actor {
	return middleware.CurrentActor(ctx)
}

func postIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("post_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func profileURL(username string) string {
	return "/" + username + "/"
}

func postURL(username string, id uint) string {
	return "/" + username + "/" + strconv.FormatUint(uint64(id), 10) + "/"
}

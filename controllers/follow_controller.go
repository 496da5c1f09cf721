package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// FollowController serves the follow feed and the follow/unfollow actions.
type FollowController struct {
	feeds   *services.FeedService
	follows *services.FollowService
	images  *utils.ImageStore
	perPage int
}

func NewFollowController(feeds *services.FeedService, follows *services.FollowService, images *utils.ImageStore, perPage int) *FollowController {
	return &FollowController{feeds: feeds, follows: follows, images: images, perPage: perPage}
}

// FollowIndex renders posts of every author the actor follows.
func (f *FollowController) FollowIndex(ctx *gin.Context) {
	feed, err := f.feeds.FollowedFeed(ctx.Request.Context(), currentActor(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	page, err := utils.Paginate[models.Post](feed, f.perPage, ctx.Query("page"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"page_obj": postPage(f.images, page)})
}

func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	username := ctx.Param("username")
	if err := f.follows.Follow(ctx.Request.Context(), currentActor(ctx), username); err != nil {
		fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(username))
}

func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	username := ctx.Param("username")
	if err := f.follows.Unfollow(ctx.Request.Context(), currentActor(ctx), username); err != nil {
		fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(username))
}

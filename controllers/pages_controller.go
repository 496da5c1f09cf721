package controllers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// PagesController serves static pages, navigation lists and site maintenance.
type PagesController struct {
	dir   *services.Directory
	cache *utils.PageCache
	cfg   config.AppConfig
}

func NewPagesController(dir *services.Directory, cache *utils.PageCache, cfg config.AppConfig) *PagesController {
	return &PagesController{dir: dir, cache: cache, cfg: cfg}
}

func (p *PagesController) AboutAuthor(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"title": "About the author",
		"text":  "Yatube is a small blogging platform: write posts, join groups, comment and follow the authors you like.",
	})
}

// AboutTech lists the stack and current site counts.
func (p *PagesController) AboutTech(ctx *gin.Context) {
	stats, err := p.dir.Stats(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"title": "Technologies",
		"stack": []string{"Go " + runtime.Version(), "gin", "gorm", "zap"},
		"stats": stats,
	})
}

// Groups lists every group for navigation.
func (p *PagesController) Groups(ctx *gin.Context) {
	groups, err := p.dir.Groups(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"groups": groups})
}

// Users lists every user for navigation.
func (p *PagesController) Users(ctx *gin.Context) {
	users, err := p.dir.Users(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"users": users})
}

// ClearCache empties the page cache. Only configured admins may call it.
func (p *PagesController) ClearCache(ctx *gin.Context) {
	actor := currentActor(ctx)
	if !actor.Authenticated || !p.cfg.IsAdmin(actor.Username) {
		utils.Error(ctx, http.StatusForbidden, 40300, "admin only")
		return
	}
	p.cache.Clear()
	utils.Success(ctx, gin.H{"message": "cache cleared"})
}

func (p *PagesController) Health(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"status": "ok"})
}

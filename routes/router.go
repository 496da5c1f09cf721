package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, cfg config.AppConfig, cache *utils.PageCache) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxUploadMB+1) << 20
	// Access log goes to its own rolling file; without one, use the application logger.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		if cfg.GinPath != "" {
			utils.Logger.Warn("access log file unavailable, using application logger", zap.Error(err))
		}
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// Credentials cannot be combined with a wildcard origin.
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Actor(cfg.JWTSecret))

	images := utils.NewImageStore(cfg.MediaRoot, cfg.MediaURL, cfg.MaxUploadMB)
	r.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)

	feeds := services.NewFeedService(db)
	posts := services.NewPostService(db)
	follows := services.NewFollowService(db)
	dir := services.NewDirectory(db)
	accounts := services.NewAccounts(db, cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	postController := controllers.NewPostController(feeds, posts, follows, dir, images, cache, cfg.PaginatorPage)
	followController := controllers.NewFollowController(feeds, follows, images, cfg.PaginatorPage)
	authController := controllers.NewAuthController(accounts, cfg.CookieSecure)
	pagesController := controllers.NewPagesController(dir, cache, cfg)

	limited := middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware()
	login := middleware.LoginRequired()

	r.GET("/health", pagesController.Health)
	r.GET("/about/author/", pagesController.AboutAuthor)
	r.GET("/about/tech/", pagesController.AboutTech)
	r.GET("/groups", pagesController.Groups)
	r.GET("/users", pagesController.Users)
	r.POST("/admin/cache/clear", login, pagesController.ClearCache)

	authGroup := r.Group("/auth")
	authGroup.Use(limited)
	authGroup.POST("/signup", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/login/", authController.LoginPage)
	authGroup.POST("/logout", authController.Logout)

	r.GET("/", postController.Index)
	r.GET("/group/:slug", postController.GroupPosts)
	r.GET("/new", login, postController.NewPostForm)
	r.POST("/new", login, limited, postController.CreatePost)

	r.GET("/follow/", login, followController.FollowIndex)
	r.GET("/follow/:username", login, limited, followController.ProfileFollow)
	r.GET("/unfollow/:username", login, limited, followController.ProfileUnfollow)

	r.GET("/:username/", postController.Profile)
	r.GET("/:username/:post_id/", postController.PostView)
	r.GET("/:username/:post_id/edit", login, postController.EditPostForm)
	r.POST("/:username/:post_id/edit", login, limited, postController.EditPost)
	r.POST("/:username/:post_id/comment", limited, postController.AddComment)

	r.NoRoute(controllers.NotFound)

	return r
}

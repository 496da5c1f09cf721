package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// PostController serves the post listings, the post page and post/comment forms.
type PostController struct {
	feeds   *services.FeedService
	posts   *services.PostService
	follows *services.FollowService
	dir     *services.Directory
	images  *utils.ImageStore
	cache   *utils.PageCache
	perPage int
}

// NewPostController creates a new PostController instance.
func NewPostController(feeds *services.FeedService, posts *services.PostService, follows *services.FollowService,
	dir *services.Directory, images *utils.ImageStore, cache *utils.PageCache, perPage int) *PostController {
	return &PostController{
		feeds:   feeds,
		posts:   posts,
		follows: follows,
		dir:     dir,
		images:  images,
		cache:   cache,
		perPage: perPage,
	}
}

// Index renders the global feed. Rendered pages are cached per page number and
// served unchanged until they expire or the cache is cleared.
func (p *PostController) Index(ctx *gin.Context) {
	key := utils.IndexKey(utils.PageNumber(ctx.Query("page")))
	if b, ok := p.cache.Get(key); ok {
		utils.WriteRendered(ctx, b)
		return
	}

	page, err := utils.Paginate[models.Post](p.feeds.GlobalFeed(ctx.Request.Context()), p.perPage, ctx.Query("page"))
	if err != nil {
		fail(ctx, err)
		return
	}
	b, err := utils.RenderSuccess(gin.H{"page_obj": postPage(p.images, page)})
	if err != nil {
		fail(ctx, err)
		return
	}
	p.cache.Set(key, b)
	utils.WriteRendered(ctx, b)
}

// GroupPosts renders one group's feed.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, feed, err := p.feeds.GroupFeed(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		fail(ctx, err)
		return
	}
	page, err := utils.Paginate[models.Post](feed, p.perPage, ctx.Query("page"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"group": group, "page_obj": postPage(p.images, page)})
}

// Profile renders an author's posts with follow information.
func (p *PostController) Profile(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	author, feed, err := p.feeds.ProfileFeed(rctx, ctx.Param("username"))
	if err != nil {
		fail(ctx, err)
		return
	}
	page, err := utils.Paginate[models.Post](feed, p.perPage, ctx.Query("page"))
	if err != nil {
		fail(ctx, err)
		return
	}
	followers, err := p.follows.FollowerCount(rctx, author.ID)
	if err != nil {
		fail(ctx, err)
		return
	}
	following, err := p.follows.FollowingCount(rctx, author.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	actor := currentActor(ctx)
	isAuthor := actor.Is(author.ID, author.Username)
	payload := gin.H{
		"author":          author,
		"page_obj":        postPage(p.images, page),
		"post_count":      page.Total,
		"followers_count": followers,
		"following_count": following,
		"is_author":       isAuthor,
	}
	if actor.Authenticated && !isAuthor {
		isFollowing, err := p.follows.IsFollowing(rctx, actor, author.ID)
		if err != nil {
			fail(ctx, err)
			return
		}
		payload["following"] = isFollowing
	}
	utils.Success(ctx, payload)
}

// PostView renders a single post with its comments.
func (p *PostController) PostView(ctx *gin.Context) {
	postID, ok := postIDParam(ctx)
	if !ok {
		NotFound(ctx)
		return
	}
	detail, err := p.feeds.PostDetail(ctx.Request.Context(), ctx.Param("username"), postID)
	if err != nil {
		fail(ctx, err)
		return
	}

	actor := currentActor(ctx)
	author := detail.Post.Author
	payload := gin.H{
		"post":       newPostView(p.images)(detail.Post),
		"author":     author,
		"comments":   detail.Comments,
		"post_count": detail.AuthorPosts,
		"is_author":  actor.Is(author.ID, author.Username),
	}
	if actor.Authenticated {
		payload["comment_form"] = formSkeleton(postURL(author.Username, postID)+"comment", "text")
	}
	utils.Success(ctx, payload)
}

// NewPostForm describes the post creation form.
func (p *PostController) NewPostForm(ctx *gin.Context) {
	groups, err := p.dir.Groups(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"form":    formSkeleton("/new", "text", "group", "image"),
		"groups":  groups,
		"is_edit": false,
	})
}

// CreatePost handles the post creation form and sends the author to the home page.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var form postForm
	if err := bind(ctx, &form); err != nil {
		fail(ctx, err)
		return
	}
	image, err := p.saveImage(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	_, err = p.posts.CreatePost(ctx.Request.Context(), currentActor(ctx), services.PostInput{
		Text:    form.Text,
		GroupID: form.groupID(),
		Image:   image,
	})
	if err != nil {
		p.images.Remove(image)
		fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// EditPostForm describes the edit form prefilled with the current post.
func (p *PostController) EditPostForm(ctx *gin.Context) {
	post, ok := p.editablePost(ctx)
	if !ok {
		return
	}
	groups, err := p.dir.Groups(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"form":    formSkeleton(postURL(post.Author.Username, post.ID)+"edit", "text", "group", "image"),
		"post":    newPostView(p.images)(post),
		"groups":  groups,
		"is_edit": true,
	})
}

// EditPost saves the edit form and sends the author back to the post.
func (p *PostController) EditPost(ctx *gin.Context) {
	current, ok := p.editablePost(ctx)
	if !ok {
		return
	}
	var form postForm
	if err := bind(ctx, &form); err != nil {
		fail(ctx, err)
		return
	}
	image, err := p.saveImage(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	post, err := p.posts.EditPost(ctx.Request.Context(), currentActor(ctx), current.ID, services.PostInput{
		Text:    form.Text,
		GroupID: form.groupID(),
		Image:   image,
	})
	if err != nil {
		p.images.Remove(image)
		fail(ctx, err)
		return
	}
	if image != "" && current.Image != "" && current.Image != image {
		p.images.Remove(current.Image)
	}
	ctx.Redirect(http.StatusFound, postURL(current.Author.Username, post.ID))
}

// AddComment stores a comment and always returns to the post, even when nothing was saved.
func (p *PostController) AddComment(ctx *gin.Context) {
	postID, ok := postIDParam(ctx)
	if !ok {
		NotFound(ctx)
		return
	}
	rctx := ctx.Request.Context()
	detail, err := p.feeds.PostDetail(rctx, ctx.Param("username"), postID)
	if err != nil {
		fail(ctx, err)
		return
	}
	target := postURL(detail.Post.Author.Username, postID)

	var form commentForm
	if err := bind(ctx, &form); err != nil {
		ctx.Redirect(http.StatusFound, target)
		return
	}
	_, err = p.posts.AddComment(rctx, currentActor(ctx), postID, form.Text)
	switch {
	case err == nil, errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrValidation):
		ctx.Redirect(http.StatusFound, target)
	default:
		fail(ctx, err)
	}
}

// editablePost loads the addressed post and checks the actor wrote it.
// Strangers are sent to the home page whatever author the URL names.
func (p *PostController) editablePost(ctx *gin.Context) (models.Post, bool) {
	postID, ok := postIDParam(ctx)
	if !ok {
		NotFound(ctx)
		return models.Post{}, false
	}
	post, err := p.feeds.Post(ctx.Request.Context(), postID)
	if err != nil {
		fail(ctx, err)
		return models.Post{}, false
	}
	if actor := currentActor(ctx); !actor.Is(post.AuthorID, "") {
		ctx.Redirect(http.StatusFound, "/")
		return models.Post{}, false
	}
	if models.NormalizeUsername(ctx.Param("username")) != post.Author.UsernameLower {
		NotFound(ctx)
		return models.Post{}, false
	}
	return post, true
}

// saveImage stores the optional "image" upload and returns its stored path.
func (p *PostController) saveImage(ctx *gin.Context) (string, error) {
	header, err := ctx.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", &services.ValidationError{Fields: map[string]string{"image": "could not read upload"}}
	}
	rel, err := p.images.Save(header)
	switch {
	case errors.Is(err, utils.ErrNotAnImage):
		return "", &services.ValidationError{Fields: map[string]string{"image": "upload a valid image"}}
	case errors.Is(err, utils.ErrImageTooLarge):
		return "", &services.ValidationError{Fields: map[string]string{"image": "image is too large"}}
	case err != nil:
		return "", err
	}
	return rel, nil
}

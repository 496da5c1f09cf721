package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

type testApp struct {
	t      *testing.T
	db     *gorm.DB
	cache  *utils.PageCache
	router *gin.Engine
}

type user struct {
	id    uint
	name  string
	token string
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type postItem struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
	Author   struct {
		Username string `json:"username"`
	} `json:"author"`
}

type pageBody struct {
	PageObj struct {
		Items       []postItem `json:"items"`
		Number      int        `json:"number"`
		Total       int64      `json:"total"`
		TotalPages  int        `json:"total_pages"`
		HasNext     bool       `json:"has_next"`
		HasPrevious bool       `json:"has_previous"`
	} `json:"page_obj"`
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.AppConfig{
		GinMode:            "test",
		JWTSecret:          "router-secret",
		TokenTTLHours:      1,
		DBDriver:           "sqlite",
		DatabaseURI:        ":memory:",
		LogLevel:           "silent",
		RateLimitPerMinute: 100000,
		AllowedOrigins:     []string{"*"},
		PaginatorPage:      10,
		MediaRoot:          t.TempDir(),
		MediaURL:           "/media/",
		MaxUploadMB:        1,
		AdminUsernames:     []string{"boss"},
	}
	db, err := config.OpenDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	cache := utils.NewPageCache(16, time.Minute)
	return &testApp{t: t, db: db, cache: cache, router: SetupRouter(db, cfg, cache)}
}

func (a *testApp) do(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path, token string) *httptest.ResponseRecorder {
	return a.do(http.MethodGet, path, token, "", nil)
}

func (a *testApp) postForm(path, token string, form url.Values) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, path, token, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (a *testApp) signup(name string) user {
	a.t.Helper()
	body := `{"username":"` + name + `","password":"password123"}`
	w := a.do(http.MethodPost, "/auth/signup", "", "application/json", strings.NewReader(body))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decode(a.t, w, &data)
	return user{id: data.User.ID, name: name, token: data.Token}
}

func (a *testApp) createPost(u user, text string) uint {
	a.t.Helper()
	id, err := services.NewPostService(a.db).CreatePost(bg(), services.Authenticated(u.id, u.name), services.PostInput{Text: text})
	require.NoError(a.t, err)
	return id
}

func (a *testApp) count(model interface{}) int64 {
	a.t.Helper()
	var n int64
	require.NoError(a.t, a.db.Model(model).Count(&n).Error)
	return n
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func postPath(u user, id uint) string {
	return "/" + u.name + "/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func TestIndexPaginatesThirteenPosts(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	for i := 0; i < 13; i++ {
		app.createPost(leo, "post "+strconv.Itoa(i))
	}

	w := app.get("/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var first pageBody
	decode(t, w, &first)
	assert.Len(t, first.PageObj.Items, 10)
	assert.Equal(t, "post 12", first.PageObj.Items[0].Text)
	assert.True(t, first.PageObj.HasNext)
	assert.Equal(t, 2, first.PageObj.TotalPages)

	var second pageBody
	decode(t, app.get("/?page=2", ""), &second)
	assert.Len(t, second.PageObj.Items, 3)
	assert.False(t, second.PageObj.HasNext)
	assert.True(t, second.PageObj.HasPrevious)

	var clamped pageBody
	decode(t, app.get("/?page=99", ""), &clamped)
	assert.Equal(t, 2, clamped.PageObj.Number)

	var junk pageBody
	decode(t, app.get("/?page=abc", ""), &junk)
	assert.Equal(t, 1, junk.PageObj.Number)
}

func TestIndexIsCachedUntilCleared(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	app.createPost(leo, "before")

	before := app.get("/", "")
	require.Equal(t, http.StatusOK, before.Code)

	w := app.postForm("/new", leo.token, url.Values{"text": {"fresh post"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cached := app.get("/", "")
	assert.Equal(t, before.Body.Bytes(), cached.Body.Bytes())
	assert.NotContains(t, cached.Body.String(), "fresh post")

	app.cache.Clear()
	after := app.get("/", "")
	assert.NotEqual(t, before.Body.Bytes(), after.Body.Bytes())
	assert.Contains(t, after.Body.String(), "fresh post")
}

func TestGroupPage(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	group, err := services.NewDirectory(app.db).CreateGroup(bg(), "Cats", "cats", "")
	require.NoError(t, err)
	_, err = services.NewDirectory(app.db).CreateGroup(bg(), "Dogs", "dogs", "")
	require.NoError(t, err)

	w := app.postForm("/new", leo.token, url.Values{"text": {"meow"}, "group": {strconv.FormatUint(uint64(group.ID), 10)}})
	require.Equal(t, http.StatusFound, w.Code)
	app.createPost(leo, "no group")

	var cats pageBody
	decode(t, app.get("/group/cats", ""), &cats)
	require.Len(t, cats.PageObj.Items, 1)
	assert.Equal(t, "meow", cats.PageObj.Items[0].Text)

	var dogs pageBody
	w = app.get("/group/dogs", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &dogs)
	assert.Empty(t, dogs.PageObj.Items)

	w = app.get("/group/birds", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, decode(t, w, nil).Code)
}

func TestProfilePage(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	mia := app.signup("mia")
	app.createPost(leo, "leo writes")
	app.createPost(mia, "mia writes")

	var data struct {
		pageBody
		PostCount      int64 `json:"post_count"`
		FollowersCount int64 `json:"followers_count"`
		IsAuthor       bool  `json:"is_author"`
		Following      *bool `json:"following"`
	}
	decode(t, app.get("/leo/", ""), &data)
	require.Len(t, data.PageObj.Items, 1)
	assert.Equal(t, "leo writes", data.PageObj.Items[0].Text)
	assert.Equal(t, int64(1), data.PostCount)
	assert.Nil(t, data.Following, "anonymous viewers get no follow flag")

	require.Equal(t, http.StatusFound, app.get("/follow/leo", mia.token).Code)
	data.Following = nil
	decode(t, app.get("/leo/", mia.token), &data)
	require.NotNil(t, data.Following)
	assert.True(t, *data.Following)
	assert.Equal(t, int64(1), data.FollowersCount)

	data.Following = nil
	decode(t, app.get("/leo/", leo.token), &data)
	assert.Nil(t, data.Following, "authors get no follow flag on their own profile")
	assert.True(t, data.IsAuthor)

	assert.Equal(t, http.StatusNotFound, app.get("/ghost/", "").Code)
}

func TestPostPageListsComments(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")
	id := app.createPost(bob, "bob's post")

	w := app.postForm(postPath(bob, id)+"comment", alice.token, url.Values{"text": {"hi"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, postPath(bob, id), w.Header().Get("Location"))
	assert.Equal(t, int64(1), app.count(&models.Comment{}))

	w = app.postForm(postPath(bob, id)+"comment", "", url.Values{"text": {"x"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, postPath(bob, id), w.Header().Get("Location"))
	assert.Equal(t, int64(1), app.count(&models.Comment{}))

	var data struct {
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
		PostCount   int64           `json:"post_count"`
		CommentForm json.RawMessage `json:"comment_form"`
	}
	decode(t, app.get(postPath(bob, id), ""), &data)
	require.Len(t, data.Comments, 1)
	assert.Equal(t, "hi", data.Comments[0].Text)
	assert.Equal(t, int64(1), data.PostCount)
	assert.Empty(t, data.CommentForm)

	data.CommentForm = nil
	decode(t, app.get(postPath(bob, id), alice.token), &data)
	assert.NotEmpty(t, data.CommentForm)

	assert.Equal(t, http.StatusNotFound, app.get("/alice/"+strconv.FormatUint(uint64(id), 10)+"/", "").Code)
	assert.Equal(t, http.StatusNotFound, app.get("/bob/abc/", "").Code)
	assert.Equal(t, http.StatusNotFound, app.postForm("/bob/9999/comment", alice.token, url.Values{"text": {"x"}}).Code)
}

func TestEditPost(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	mia := app.signup("mia")
	id := app.createPost(leo, "original")
	editPath := postPath(leo, id) + "edit"

	w := app.postForm(editPath, mia.token, url.Values{"text": {"hijacked"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	w = app.get(editPath, mia.token)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var post models.Post
	require.NoError(t, app.db.First(&post, id).Error)
	assert.Equal(t, "original", post.Text)

	assert.Equal(t, http.StatusOK, app.get(editPath, leo.token).Code)
	w = app.postForm(editPath, leo.token, url.Values{"text": {"edited"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, postPath(leo, id), w.Header().Get("Location"))
	require.NoError(t, app.db.First(&post, id).Error)
	assert.Equal(t, "edited", post.Text)
}

func TestEditByStrangerRedirectsWhateverAuthorTheURLNames(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	mia := app.signup("mia")
	id := app.createPost(leo, "original")
	underMia := postPath(mia, id) + "edit"

	w := app.postForm(underMia, mia.token, url.Values{"text": {"hijacked"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	w = app.get(underMia, mia.token)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var post models.Post
	require.NoError(t, app.db.First(&post, id).Error)
	assert.Equal(t, "original", post.Text)

	assert.Equal(t, http.StatusNotFound, app.get(underMia, leo.token).Code)
	assert.Equal(t, http.StatusNotFound, app.postForm(underMia, leo.token, url.Values{"text": {"x"}}).Code)
	assert.Equal(t, http.StatusOK, app.get("/LEO/"+strconv.FormatUint(uint64(id), 10)+"/edit", leo.token).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/leo/999999/edit", leo.token).Code)
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	id := app.createPost(leo, "text")

	for _, path := range []string{"/new", "/follow/", "/follow/leo", postPath(leo, id) + "edit"} {
		w := app.get(path, "")
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/auth/login/?next="+path, w.Header().Get("Location"), path)
	}

	w := app.postForm("/new", "", url.Values{"text": {"sneaky"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, int64(1), app.count(&models.Post{}))

	assert.Equal(t, http.StatusOK, app.get("/auth/login/?next=/new", "").Code)
}

func TestFollowFlow(t *testing.T) {
	app := newTestApp(t)
	a := app.signup("a")
	b := app.signup("b")
	c := app.signup("c")
	app.createPost(b, "from b")
	app.createPost(c, "from c")

	for i := 0; i < 2; i++ {
		w := app.get("/follow/b", a.token)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/b/", w.Header().Get("Location"))
	}
	assert.Equal(t, int64(1), app.count(&models.Follow{}))
	require.Equal(t, http.StatusFound, app.get("/follow/c", a.token).Code)
	require.Equal(t, http.StatusFound, app.get("/follow/a", a.token).Code)
	assert.Equal(t, int64(2), app.count(&models.Follow{}))

	var feed pageBody
	decode(t, app.get("/follow/", a.token), &feed)
	require.Len(t, feed.PageObj.Items, 2)
	assert.Equal(t, "from c", feed.PageObj.Items[0].Text)
	assert.Equal(t, "from b", feed.PageObj.Items[1].Text)

	var other pageBody
	decode(t, app.get("/follow/", c.token), &other)
	assert.Empty(t, other.PageObj.Items)

	w := app.get("/unfollow/c", a.token)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/c/", w.Header().Get("Location"))
	decode(t, app.get("/follow/", a.token), &feed)
	require.Len(t, feed.PageObj.Items, 1)
	assert.Equal(t, "from b", feed.PageObj.Items[0].Text)

	require.Equal(t, http.StatusFound, app.get("/unfollow/c", a.token).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/unfollow/ghost", a.token).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/follow/ghost", a.token).Code)
}

func TestCreatePostValidation(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")

	w := app.postForm("/new", leo.token, url.Values{"text": {""}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var data struct {
		Errors map[string]string `json:"errors"`
	}
	decode(t, w, &data)
	assert.Contains(t, data.Errors, "text")

	w = app.postForm("/new", leo.token, url.Values{"text": {"x"}, "group": {"77"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &data)
	assert.Contains(t, data.Errors, "group")
	assert.Zero(t, app.count(&models.Post{}))

	assert.Equal(t, http.StatusOK, app.get("/new", leo.token).Code)
}

func TestCreatePostWithImage(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	gif := []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "with picture"))
	fw, err := mw.CreateFormFile("image", "small.gif")
	require.NoError(t, err)
	_, err = fw.Write(gif)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := app.do(http.MethodPost, "/new", leo.token, mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	var page pageBody
	decode(t, app.get("/leo/", ""), &page)
	require.Len(t, page.PageObj.Items, 1)
	imageURL := page.PageObj.Items[0].ImageURL
	require.True(t, strings.HasPrefix(imageURL, "/media/posts/"), imageURL)

	w = app.get(imageURL, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gif, w.Body.Bytes())
}

func TestAuthEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.signup("leo")

	w := app.postForm("/auth/signup", "", url.Values{"username": {"leo"}, "password": {"password123"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.postForm("/auth/login", "", url.Values{"username": {"leo"}, "password": {"nope-nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.postForm("/auth/login?next=/new", "", url.Values{"username": {"LEO"}, "password": {"password123"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/new", w.Header().Get("Location"))
	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/new", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = app.postForm("/auth/login?next=//evil.example", "", url.Values{"username": {"leo"}, "password": {"password123"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminCacheClear(t *testing.T) {
	app := newTestApp(t)
	leo := app.signup("leo")
	admin := app.signup("boss")
	app.get("/", "")
	require.Equal(t, 1, app.cache.Len())

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodPost, "/admin/cache/clear", leo.token, "", nil).Code)
	assert.Equal(t, 1, app.cache.Len())
	assert.Equal(t, http.StatusOK, app.do(http.MethodPost, "/admin/cache/clear", admin.token, "", nil).Code)
	assert.Equal(t, 0, app.cache.Len())
}

func TestStaticPagesAndFallback(t *testing.T) {
	app := newTestApp(t)
	app.signup("leo")
	_, err := services.NewDirectory(app.db).CreateGroup(bg(), "Cats", "cats", "")
	require.NoError(t, err)

	for _, path := range []string{"/health", "/about/author/", "/about/tech/", "/groups", "/users"} {
		assert.Equal(t, http.StatusOK, app.get(path, "").Code, path)
	}

	var users struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}
	decode(t, app.get("/users", ""), &users)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "leo", users.Users[0].Username)
	assert.NotContains(t, app.get("/users", "").Body.String(), "password")

	w := app.get("/a/b/c/d/e", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var data struct {
		Path string `json:"path"`
	}
	env := decode(t, w, &data)
	assert.Equal(t, 40400, env.Code)
	assert.Equal(t, "/a/b/c/d/e", data.Path)
}

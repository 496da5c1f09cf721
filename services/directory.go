package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Directory answers lookups of users and groups used by navigation, forms and profiles.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Groups lists every group ordered by title.
func (d *Directory) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := d.db.WithContext(ctx).Order("title ASC").Order("id ASC").Find(&groups).Error; err != nil {
		return nil, errors.Wrap(err, "list groups")
	}
	return groups, nil
}

// Users lists every user ordered by username.
func (d *Directory) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := d.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// GroupBySlug returns the group with the exact slug.
func (d *Directory) GroupBySlug(ctx context.Context, slug string) (models.Group, error) {
	var g models.Group
	if err := d.db.WithContext(ctx).Where("slug = ?", slug).First(&g).Error; err != nil {
		return models.Group{}, notFoundOr(err, "find group")
	}
	return g, nil
}

// GroupExists reports whether a group with id exists.
func (d *Directory) GroupExists(ctx context.Context, id uint) (bool, error) {
	return groupExists(d.db.WithContext(ctx), id)
}

// UserByUsername matches the username case-insensitively.
func (d *Directory) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return userByUsername(d.db.WithContext(ctx), username)
}

// CreateGroup adds a group. Groups are managed administratively, not through the public pages.
func (d *Directory) CreateGroup(ctx context.Context, title, slug, description string) (models.Group, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)
	if title == "" {
		return models.Group{}, invalid("title", "this field is required")
	}
	if !slugPattern.MatchString(slug) {
		return models.Group{}, invalid("slug", "use letters, digits, hyphens or underscores")
	}

	db := d.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Group{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return models.Group{}, errors.Wrap(err, "check slug")
	}
	if n > 0 {
		return models.Group{}, invalid("slug", "a group with this slug already exists")
	}

	g := models.Group{Title: title, Slug: slug, Description: description}
	if err := db.Create(&g).Error; err != nil {
		return models.Group{}, errors.Wrap(err, "create group")
	}
	return g, nil
}

func userByUsername(db *gorm.DB, username string) (models.User, error) {
	key := models.NormalizeUsername(username)
	if key == "" {
		return models.User{}, ErrNotFound
	}
	var u models.User
	if err := db.Where("username_lower = ?", key).First(&u).Error; err != nil {
		return models.User{}, notFoundOr(err, "find user")
	}
	return u, nil
}

func groupExists(db *gorm.DB, id uint) (bool, error) {
	var n int64
	if err := db.Model(&models.Group{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "check group")
	}
	return n > 0, nil
}

// SiteStats are the row counts shown on the tech page.
type SiteStats struct {
	Users    int64 `json:"users"`
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
	Groups   int64 `json:"groups"`
}

// Stats counts users, posts, comments and groups.
func (d *Directory) Stats(ctx context.Context) (SiteStats, error) {
	db := d.db.WithContext(ctx)
	var s SiteStats
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &s.Users},
		{&models.Post{}, &s.Posts},
		{&models.Comment{}, &s.Comments},
		{&models.Group{}, &s.Groups},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return SiteStats{}, errors.Wrap(err, "count rows")
		}
	}
	return s, nil
}

package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// PostInput is the editable part of a post. Image is a stored path; empty keeps the current one on edit.
type PostInput struct {
	Text    string
	GroupID *uint
	Image   string
}

// PostService creates and edits posts and comments.
// Nothing here touches the page cache: listings catch up when their cached copy expires.
type PostService struct {
	db *gorm.DB
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// CreatePost stores a new post authored by the actor and returns its id.
func (s *PostService) CreatePost(ctx context.Context, actor Actor, in PostInput) (uint, error) {
	if !actor.Authenticated {
		return 0, ErrUnauthorized
	}
	db := s.db.WithContext(ctx)
	text, err := s.validate(db, &in)
	if err != nil {
		return 0, err
	}

	post := models.Post{
		Text:     text,
		AuthorID: actor.ID,
		GroupID:  in.GroupID,
		Image:    in.Image,
	}
	if err := db.Omit(clause.Associations).Create(&post).Error; err != nil {
		return 0, errors.Wrap(err, "create post")
	}
	utils.Sugar.Infow("post created", "post_id", post.ID, "author_id", actor.ID)
	return post.ID, nil
}

// EditPost overwrites text, group and, when a new one is given, image. Author and creation time stay.
func (s *PostService) EditPost(ctx context.Context, actor Actor, postID uint, in PostInput) (models.Post, error) {
	db := s.db.WithContext(ctx)
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		return models.Post{}, notFoundOr(err, "find post")
	}
	if !actor.Authenticated || actor.ID != post.AuthorID {
		return models.Post{}, ErrForbidden
	}

	text, err := s.validate(db, &in)
	if err != nil {
		return models.Post{}, err
	}
	post.Text = text
	post.GroupID = in.GroupID
	if in.Image != "" {
		post.Image = in.Image
	}
	err = db.Model(&models.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(models.Post{Text: post.Text, GroupID: post.GroupID, Image: post.Image}).Error
	if err != nil {
		return models.Post{}, errors.Wrap(err, "update post")
	}
	return post, nil
}

// AddComment attaches a comment by the actor to the post.
func (s *PostService) AddComment(ctx context.Context, actor Actor, postID uint, text string) (models.Comment, error) {
	if !actor.Authenticated {
		return models.Comment{}, ErrUnauthorized
	}
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return models.Comment{}, errors.Wrap(err, "find post")
	}
	if n == 0 {
		return models.Comment{}, ErrNotFound
	}

	text = utils.Sanitize(text)
	if text == "" {
		return models.Comment{}, invalid("text", "this field is required")
	}
	comment := models.Comment{PostID: postID, AuthorID: actor.ID, Text: text}
	if err := db.Omit(clause.Associations).Create(&comment).Error; err != nil {
		return models.Comment{}, errors.Wrap(err, "create comment")
	}
	return comment, nil
}

func (s *PostService) validate(db *gorm.DB, in *PostInput) (string, error) {
	text := utils.Sanitize(in.Text)
	if strings.TrimSpace(text) == "" {
		return "", invalid("text", "this field is required")
	}
	if in.GroupID != nil {
		ok, err := groupExists(db, *in.GroupID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", invalid("group", "select a valid group")
		}
	}
	return text, nil
}

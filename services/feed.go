package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

// Feed is an ordered, filtered view over posts. It satisfies utils.Source[models.Post].
type Feed struct {
	db    *gorm.DB
	scope func(*gorm.DB) *gorm.DB
}

func (f Feed) base() *gorm.DB {
	q := f.db.Model(&models.Post{})
	if f.scope != nil {
		q = q.Scopes(f.scope)
	}
	return q
}

// Count returns the number of posts in the feed.
func (f Feed) Count() (int64, error) {
	var n int64
	if err := f.base().Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count posts")
	}
	return n, nil
}

// Slice returns up to limit posts starting at offset, newest first, with author and group loaded.
func (f Feed) Slice(offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := f.base().
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return posts, nil
}

// FeedService builds the listing views. It never writes.
type FeedService struct {
	db *gorm.DB
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{db: db}
}

// GlobalFeed lists all posts.
func (s *FeedService) GlobalFeed(ctx context.Context) Feed {
	return Feed{db: s.db.WithContext(ctx)}
}

// GroupFeed lists the posts tagged with the group. An existing group with no posts gives an empty feed.
func (s *FeedService) GroupFeed(ctx context.Context, slug string) (models.Group, Feed, error) {
	db := s.db.WithContext(ctx)
	var group models.Group
	if err := db.Where("slug = ?", slug).First(&group).Error; err != nil {
		return models.Group{}, Feed{}, notFoundOr(err, "find group")
	}
	return group, Feed{db: db, scope: func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.group_id = ?", group.ID)
	}}, nil
}

// ProfileFeed lists the posts written by the user.
func (s *FeedService) ProfileFeed(ctx context.Context, username string) (models.User, Feed, error) {
	db := s.db.WithContext(ctx)
	author, err := userByUsername(db, username)
	if err != nil {
		return models.User{}, Feed{}, err
	}
	return author, Feed{db: db, scope: byAuthor(author.ID)}, nil
}

// FollowedFeed lists posts by every author the actor follows, each post once.
func (s *FeedService) FollowedFeed(ctx context.Context, actor Actor) (Feed, error) {
	if !actor.Authenticated {
		return Feed{}, ErrUnauthorized
	}
	db := s.db.WithContext(ctx)
	return Feed{db: db, scope: func(q *gorm.DB) *gorm.DB {
		followed := db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", actor.ID)
		return q.Where("posts.author_id IN (?)", followed)
	}}, nil
}

// PostDetail is a single post with its discussion.
type PostDetail struct {
	Post        models.Post
	Comments    []models.Comment
	AuthorPosts int64
}

// PostDetail loads the post if it exists and was written by username.
func (s *FeedService) PostDetail(ctx context.Context, username string, postID uint) (PostDetail, error) {
	db := s.db.WithContext(ctx)
	author, err := userByUsername(db, username)
	if err != nil {
		return PostDetail{}, err
	}

	var post models.Post
	err = db.Preload("Author").Preload("Group").
		Where("id = ? AND author_id = ?", postID, author.ID).
		First(&post).Error
	if err != nil {
		return PostDetail{}, notFoundOr(err, "find post")
	}

	var comments []models.Comment
	err = db.Preload("Author").
		Where("post_id = ?", post.ID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return PostDetail{}, errors.Wrap(err, "list comments")
	}

	count, err := s.AuthorPostCount(ctx, author.ID)
	if err != nil {
		return PostDetail{}, err
	}
	return PostDetail{Post: post, Comments: comments, AuthorPosts: count}, nil
}

// Post loads a post with its author and group by id alone.
func (s *FeedService) Post(ctx context.Context, postID uint) (models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, postID).Error; err != nil {
		return models.Post{}, notFoundOr(err, "find post")
	}
	return post, nil
}

// AuthorPostCount counts the posts written by userID.
func (s *FeedService) AuthorPostCount(ctx context.Context, userID uint) (int64, error) {
	return Feed{db: s.db.WithContext(ctx), scope: byAuthor(userID)}.Count()
}

func byAuthor(id uint) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.author_id = ?", id)
	}
}

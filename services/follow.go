package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
)

// FollowService manages user -> author subscriptions.
type FollowService struct {
	db *gorm.DB
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// Follow subscribes the actor to username. Following yourself or an author you
// already follow changes nothing.
func (s *FollowService) Follow(ctx context.Context, actor Actor, username string) error {
	if !actor.Authenticated {
		return ErrUnauthorized
	}
	if actor.Is(0, username) {
		return nil
	}
	db := s.db.WithContext(ctx)
	author, err := userByUsername(db, username)
	if err != nil {
		return err
	}
	if actor.Is(author.ID, author.Username) {
		return nil
	}

	edge := models.Follow{UserID: actor.ID, AuthorID: author.ID}
	err = db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "author_id"}},
		DoNothing: true,
	}).Create(&edge).Error
	if err != nil {
		return errors.Wrap(err, "create follow")
	}
	return nil
}

// Unfollow removes the subscription if there is one.
func (s *FollowService) Unfollow(ctx context.Context, actor Actor, username string) error {
	if !actor.Authenticated {
		return ErrUnauthorized
	}
	db := s.db.WithContext(ctx)
	author, err := userByUsername(db, username)
	if err != nil {
		return err
	}
	err = db.Where("user_id = ? AND author_id = ?", actor.ID, author.ID).Delete(&models.Follow{}).Error
	if err != nil {
		return errors.Wrap(err, "delete follow")
	}
	return nil
}

// IsFollowing reports whether the actor follows authorID. Anonymous actors follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, actor Actor, authorID uint) (bool, error) {
	if !actor.Authenticated {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", actor.ID, authorID).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "check follow")
	}
	return n > 0, nil
}

// FollowerCount counts users following userID.
func (s *FollowService) FollowerCount(ctx context.Context, userID uint) (int64, error) {
	return s.count(ctx, "author_id = ?", userID)
}

// FollowingCount counts authors userID follows.
func (s *FollowService) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	return s.count(ctx, "user_id = ?", userID)
}

func (s *FollowService) count(ctx context.Context, cond string, id uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).Where(cond, id).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count follows")
	}
	return n, nil
}

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", DatabaseURI: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mustUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func mustGroup(t *testing.T, db *gorm.DB, slug string) models.Group {
	t.Helper()
	g := models.Group{Title: "Group " + slug, Slug: slug}
	require.NoError(t, db.Create(&g).Error)
	return g
}

// seedPosts writes n posts for author, one second apart, the last one newest.
func seedPosts(t *testing.T, db *gorm.DB, author models.User, group *models.Group, n int) []models.Post {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		p := models.Post{
			Text:      fmt.Sprintf("%s post %d", author.Username, i),
			AuthorID:  author.ID,
			CreatedAt: base.Add(time.Duration(len(posts)) * time.Second),
		}
		if group != nil {
			p.GroupID = &group.ID
		}
		require.NoError(t, db.Omit(clause.Associations).Create(&p).Error)
		posts = append(posts, p)
	}
	return posts
}

func actorOf(u models.User) Actor {
	return Authenticated(u.ID, u.Username)
}

func allPosts(t *testing.T, f Feed) []models.Post {
	t.Helper()
	n, err := f.Count()
	require.NoError(t, err)
	posts, err := f.Slice(0, int(n)+1)
	require.NoError(t, err)
	require.Len(t, posts, int(n))
	return posts
}

func postIDs(posts []models.Post) []uint {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

var bg = context.Background()

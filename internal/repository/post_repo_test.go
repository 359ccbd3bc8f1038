package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sbel2/citale-api/internal/models"
)

func TestPostRepositoryListSearchAndFilters(t *testing.T) {
	db := setupTestDB(t, &models.Post{})
	repo := NewPostRepository(db)

	now := time.Now().UTC()
	jazz := models.Post{UserID: "alice", Title: "Jazz Night", Description: "Live jazz downtown", Category: "music", Location: "Boston", Price: "free", Season: "summer", CreatedAt: now}
	market := models.Post{UserID: "bob", Title: "Farmers Market", Description: "Fresh produce", Category: "food", Location: "Cambridge", CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, db.Create(&jazz).Error)
	require.NoError(t, db.Create(&market).Error)

	searched, total, err := repo.List(context.Background(), PostFilter{Search: "JAZZ"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, searched, 1)
	require.Equal(t, "Jazz Night", searched[0].Title)

	byCategory, total, err := repo.List(context.Background(), PostFilter{Category: "food"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Farmers Market", byCategory[0].Title)

	all, total, err := repo.List(context.Background(), PostFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Jazz Night", all[0].Title, "newest post first")
}

func TestPostRepositoryListPagination(t *testing.T) {
	db := setupTestDB(t, &models.Post{})
	repo := NewPostRepository(db)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		post := models.Post{UserID: "alice", Title: "Post", CreatedAt: now.Add(-time.Duration(i) * time.Minute)}
		require.NoError(t, db.Create(&post).Error)
	}

	paged, total, err := repo.List(context.Background(), PostFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, paged, 2)
}

func TestPostRepositoryFindByIDMissing(t *testing.T) {
	db := setupTestDB(t, &models.Post{})
	repo := NewPostRepository(db)

	_, err := repo.FindByID(context.Background(), 404)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestPostRepositoryAddLikeCount(t *testing.T) {
	db := setupTestDB(t, &models.Post{})
	repo := NewPostRepository(db)

	post := models.Post{UserID: "alice", Title: "Likable", LikeCount: 1}
	require.NoError(t, db.Create(&post).Error)

	require.NoError(t, repo.AddLikeCount(context.Background(), post.PostID, 1))
	require.NoError(t, repo.AddLikeCount(context.Background(), post.PostID, -1))

	stored, err := repo.FindByID(context.Background(), post.PostID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.LikeCount)
}

func TestProfileRepositoryFindByIDs(t *testing.T) {
	db := setupTestDB(t, &models.Profile{})
	repo := NewProfileRepository(db)

	require.NoError(t, db.Create(&models.Profile{ID: "alice", Username: "alice_b"}).Error)
	require.NoError(t, db.Create(&models.Profile{ID: "bob", Username: "bob_s"}).Error)

	found, err := repo.FindByIDs(context.Background(), []string{"alice", "ghost"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "alice_b", found["alice"].Username)
	_, ok := found["ghost"]
	require.False(t, ok)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sbel2/citale-api/internal/models"
)

func TestEngagementRepositoryCommentsByPostAscending(t *testing.T) {
	db := setupTestDB(t, &models.Comment{})
	repo := NewEngagementRepository(db)

	now := time.Now().UTC().Truncate(time.Second)
	comments := []models.Comment{
		{PostID: 1, UserID: "alice", Content: "late", CommentAt: now},
		{PostID: 1, UserID: "bob", Content: "early", CommentAt: now.Add(-time.Hour)},
		{PostID: 2, UserID: "carol", Content: "elsewhere", CommentAt: now},
	}
	for i := range comments {
		require.NoError(t, repo.CreateComment(context.Background(), &comments[i]))
	}

	listed, err := repo.ListCommentsByPost(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "early", listed[0].Content)
	require.Equal(t, "late", listed[1].Content)
}

func TestEngagementRepositoryCommentsByPostIDs(t *testing.T) {
	db := setupTestDB(t, &models.Comment{})
	repo := NewEngagementRepository(db)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateComment(context.Background(), &models.Comment{PostID: 1, UserID: "bob", Content: "a", CommentAt: now}))
	require.NoError(t, repo.CreateComment(context.Background(), &models.Comment{PostID: 2, UserID: "carol", Content: "b", CommentAt: now}))
	require.NoError(t, repo.CreateComment(context.Background(), &models.Comment{PostID: 3, UserID: "dave", Content: "c", CommentAt: now}))

	listed, err := repo.ListCommentsByPostIDs(context.Background(), []uint{1, 2})
	require.NoError(t, err)
	require.Len(t, listed, 2)

	empty, err := repo.ListCommentsByPostIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEngagementRepositoryFindCommentsByIDs(t *testing.T) {
	db := setupTestDB(t, &models.Comment{})
	repo := NewEngagementRepository(db)

	comment := models.Comment{PostID: 1, UserID: "bob", Content: "hello", CommentAt: time.Now().UTC()}
	require.NoError(t, repo.CreateComment(context.Background(), &comment))

	found, err := repo.FindCommentsByIDs(context.Background(), []uint{comment.ID, 999})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "hello", found[comment.ID].Content)
	_, ok := found[999]
	require.False(t, ok, "missing ids are simply absent")
}

func TestEngagementRepositoryLikeLifecycle(t *testing.T) {
	db := setupTestDB(t, &models.Like{})
	repo := NewEngagementRepository(db)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateLike(context.Background(), &models.Like{PostID: 1, UserID: "alice", LikedAt: now}))
	require.Error(t, repo.CreateLike(context.Background(), &models.Like{PostID: 1, UserID: "alice", LikedAt: now}), "duplicate like must violate the unique index")

	likes, err := repo.ListLikesByPostIDs(context.Background(), []uint{1})
	require.NoError(t, err)
	require.Len(t, likes, 1)

	require.NoError(t, repo.DeleteLike(context.Background(), 1, "alice"))

	likes, err = repo.ListLikesByPostIDs(context.Background(), []uint{1})
	require.NoError(t, err)
	require.Empty(t, likes)
}

func TestEngagementRepositoryDeleteLikeMissingRow(t *testing.T) {
	db := setupTestDB(t, &models.Like{})
	repo := NewEngagementRepository(db)

	err := repo.DeleteLike(context.Background(), 42, "nobody")
	require.Error(t, err)
}

func TestEngagementRepositoryCommentLikes(t *testing.T) {
	db := setupTestDB(t, &models.CommentLike{})
	repo := NewEngagementRepository(db)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateCommentLike(context.Background(), &models.CommentLike{CommentID: 7, UserID: "alice", LikedAt: now}))
	require.NoError(t, repo.CreateCommentLike(context.Background(), &models.CommentLike{CommentID: 8, UserID: "bob", LikedAt: now}))

	likes, err := repo.ListCommentLikesByCommentIDs(context.Background(), []uint{7})
	require.NoError(t, err)
	require.Len(t, likes, 1)
	require.Equal(t, "alice", likes[0].UserID)

	require.NoError(t, repo.DeleteCommentLike(context.Background(), 7, "alice"))

	likes, err = repo.ListCommentLikesByCommentIDs(context.Background(), []uint{7, 8})
	require.NoError(t, err)
	require.Len(t, likes, 1)
	require.Equal(t, "bob", likes[0].UserID)
}

package service

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sbel2/citale-api/internal/dto"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	return mini, redis.NewClient(&redis.Options{Addr: mini.Addr()})
}

func TestReadStateDefaultsToUnread(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewReadStateStore(client, "citale", zerolog.Nop())

	ref := dto.NotificationRef{Kind: dto.NotificationKindComment, ID: 1}

	unread, err := store.IsUnread(context.Background(), "alice", ref)
	require.NoError(t, err)
	require.True(t, unread, "an entry never marked must be unread")
}

func TestReadStateMarkReadThenUnread(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewReadStateStore(client, "citale", zerolog.Nop())

	ref := dto.NotificationRef{Kind: dto.NotificationKindLike, ID: 7}
	ctx := context.Background()

	require.NoError(t, store.MarkRead(ctx, "alice", ref))
	unread, err := store.IsUnread(ctx, "alice", ref)
	require.NoError(t, err)
	require.False(t, unread)

	require.NoError(t, store.MarkUnread(ctx, "alice", ref))
	unread, err = store.IsUnread(ctx, "alice", ref)
	require.NoError(t, err)
	require.True(t, unread)
}

func TestReadStateScopedPerViewerAndKind(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewReadStateStore(client, "citale", zerolog.Nop())
	ctx := context.Background()

	ref := dto.NotificationRef{Kind: dto.NotificationKindComment, ID: 3}
	require.NoError(t, store.MarkRead(ctx, "alice", ref))

	// Same id, different viewer.
	unread, err := store.IsUnread(ctx, "bob", ref)
	require.NoError(t, err)
	require.True(t, unread)

	// Same viewer and id, different kind.
	unread, err = store.IsUnread(ctx, "alice", dto.NotificationRef{Kind: dto.NotificationKindLike, ID: 3})
	require.NoError(t, err)
	require.True(t, unread)
}

func TestReadStateOverlayAndBulkUpdates(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewReadStateStore(client, "citale", zerolog.Nop())
	ctx := context.Background()

	refs := make([]dto.NotificationRef, 0, 4)
	for i := uint(1); i <= 4; i++ {
		refs = append(refs, dto.NotificationRef{Kind: dto.NotificationKindComment, ID: i})
	}

	require.NoError(t, store.MarkRead(ctx, "alice", refs[0]))

	overlay, err := store.Overlay(ctx, "alice", refs)
	require.NoError(t, err)
	require.True(t, overlay[refs[0]])
	require.False(t, overlay[refs[1]])
	require.False(t, overlay[refs[2]])

	hasUnread, err := store.HasUnread(ctx, "alice", refs)
	require.NoError(t, err)
	require.True(t, hasUnread)

	require.NoError(t, store.MarkAllRead(ctx, "alice", refs))

	hasUnread, err = store.HasUnread(ctx, "alice", refs)
	require.NoError(t, err)
	require.False(t, hasUnread)

	require.NoError(t, store.MarkAllUnread(ctx, "alice", refs))

	overlay, err = store.Overlay(ctx, "alice", refs)
	require.NoError(t, err)
	for _, ref := range refs {
		require.False(t, overlay[ref], fmt.Sprintf("ref %v should be unread again", ref))
	}
}

func TestReadStateOverlayEmptyRefs(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewReadStateStore(client, "citale", zerolog.Nop())

	overlay, err := store.Overlay(context.Background(), "alice", nil)
	require.NoError(t, err)
	require.Empty(t, overlay)

	require.NoError(t, store.MarkAllRead(context.Background(), "alice", nil))
}

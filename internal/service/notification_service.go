package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/models"
	"github.com/sbel2/citale-api/internal/observability"
	"github.com/sbel2/citale-api/internal/repository"
)

// NotificationService merges the three engagement event streams targeting a
// viewer's own content into one time-descending feed, overlaid with the
// viewer's read state.
type NotificationService interface {
	Feed(ctx context.Context, viewerID string) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, viewerID string, ref dto.NotificationRef) error
	MarkUnread(ctx context.Context, viewerID string, ref dto.NotificationRef) error
	MarkAllRead(ctx context.Context, viewerID string) error
	MarkAllUnread(ctx context.Context, viewerID string) error
	HasUnread(ctx context.Context, viewerID string) (bool, error)
}

type notificationService struct {
	posts      repository.PostRepository
	engagement repository.EngagementRepository
	profiles   repository.ProfileRepository
	readState  ReadStateStore
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewNotificationService constructs the notification aggregator.
func NewNotificationService(posts repository.PostRepository, engagement repository.EngagementRepository, profiles repository.ProfileRepository, readState ReadStateStore, logger zerolog.Logger) NotificationService {
	return &notificationService{
		posts:      posts,
		engagement: engagement,
		profiles:   profiles,
		readState:  readState,
		logger:     logger.With().Str("component", "notification_service").Logger(),
		tracer:     otel.Tracer("github.com/sbel2/citale-api/internal/service/notification"),
	}
}

func (s *notificationService) Feed(ctx context.Context, viewerID string) ([]dto.NotificationResponse, error) {
	start := time.Now()
	defer func() {
		observability.NotificationFeedLatency().Observe(time.Since(start).Seconds())
	}()

	spanCtx, span := s.tracer.Start(ctx, "notifications.feed", trace.WithAttributes(
		attribute.String("notification.viewer_id", viewerID),
	))
	defer span.End()

	feed, err := s.aggregate(spanCtx, viewerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	refs := make([]dto.NotificationRef, 0, len(feed))
	for _, item := range feed {
		refs = append(refs, item.Ref())
	}

	overlay, err := s.readState.Overlay(spanCtx, viewerID, refs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for i := range feed {
		feed[i].Read = overlay[feed[i].Ref()]
	}

	return feed, nil
}

// aggregate performs the four fetch stages and the merge. Any stage failing
// aborts the whole feed; only per-item target resolution is fail-soft.
func (s *notificationService) aggregate(ctx context.Context, viewerID string) ([]dto.NotificationResponse, error) {
	ownPosts, err := s.posts.ListByUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	ownComments, err := s.engagement.ListCommentsByUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	postIDs := make([]uint, 0, len(ownPosts))
	postTitles := make(map[uint]string, len(ownPosts))
	for _, post := range ownPosts {
		postIDs = append(postIDs, post.PostID)
		postTitles[post.PostID] = post.Title
	}

	commentIDs := make([]uint, 0, len(ownComments))
	for _, comment := range ownComments {
		commentIDs = append(commentIDs, comment.ID)
	}

	var (
		comments     []models.Comment
		likes        []models.Like
		commentLikes []models.CommentLike
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		comments, err = s.engagement.ListCommentsByPostIDs(groupCtx, postIDs)
		return err
	})
	group.Go(func() error {
		var err error
		likes, err = s.engagement.ListLikesByPostIDs(groupCtx, postIDs)
		return err
	})
	group.Go(func() error {
		var err error
		commentLikes, err = s.engagement.ListCommentLikesByCommentIDs(groupCtx, commentIDs)
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Comment-likes carry only the liked comment's id; resolve its content
	// and post for rendering.
	targetIDs := make([]uint, 0, len(commentLikes))
	for _, like := range commentLikes {
		targetIDs = append(targetIDs, like.CommentID)
	}
	targetComments, err := s.engagement.FindCommentsByIDs(ctx, targetIDs)
	if err != nil {
		return nil, err
	}

	actorIDs := make([]string, 0, len(comments)+len(likes)+len(commentLikes))
	for _, comment := range comments {
		actorIDs = append(actorIDs, comment.UserID)
	}
	for _, like := range likes {
		actorIDs = append(actorIDs, like.UserID)
	}
	for _, like := range commentLikes {
		actorIDs = append(actorIDs, like.UserID)
	}

	actors, err := s.profiles.FindByIDs(ctx, actorIDs)
	if err != nil {
		return nil, err
	}

	feed := make([]dto.NotificationResponse, 0, len(comments)+len(likes)+len(commentLikes))

	for _, comment := range comments {
		item := dto.NotificationResponse{
			Kind:           dto.NotificationKindComment,
			ID:             comment.ID,
			ActorID:        comment.UserID,
			PostID:         comment.PostID,
			PostTitle:      titleOrFallback(postTitles, comment.PostID),
			CommentID:      comment.ID,
			CommentContent: comment.Content,
			OccurredAt:     comment.CommentAt,
		}
		s.attachActor(&item, actors)
		feed = append(feed, item)
	}

	for _, like := range likes {
		item := dto.NotificationResponse{
			Kind:       dto.NotificationKindLike,
			ID:         like.ID,
			ActorID:    like.UserID,
			PostID:     like.PostID,
			PostTitle:  titleOrFallback(postTitles, like.PostID),
			OccurredAt: like.LikedAt,
		}
		s.attachActor(&item, actors)
		feed = append(feed, item)
	}

	for _, like := range commentLikes {
		item := dto.NotificationResponse{
			Kind:       dto.NotificationKindCommentLike,
			ID:         like.ID,
			ActorID:    like.UserID,
			CommentID:  like.CommentID,
			OccurredAt: like.LikedAt,
		}
		if target, ok := targetComments[like.CommentID]; ok {
			item.CommentContent = target.Content
			item.PostID = target.PostID
			item.PostTitle = titleOrFallback(postTitles, target.PostID)
		} else {
			item.CommentContent = dto.DeletedCommentLabel
			item.PostTitle = dto.DeletedPostLabel
		}
		s.attachActor(&item, actors)
		feed = append(feed, item)
	}

	for _, item := range feed {
		observability.NotificationsMerged().WithLabelValues(string(item.Kind)).Inc()
	}

	// Single descending sort on the normalized timestamp; ties break on
	// (kind, id) so the order is deterministic.
	sort.SliceStable(feed, func(i, j int) bool {
		if !feed[i].OccurredAt.Equal(feed[j].OccurredAt) {
			return feed[i].OccurredAt.After(feed[j].OccurredAt)
		}
		if feed[i].Kind != feed[j].Kind {
			return feed[i].Kind < feed[j].Kind
		}
		return feed[i].ID > feed[j].ID
	})

	return feed, nil
}

func (s *notificationService) attachActor(item *dto.NotificationResponse, actors map[string]models.Profile) {
	if actor, ok := actors[item.ActorID]; ok {
		item.ActorUsername = actor.Username
		item.ActorAvatarURL = actor.AvatarURL
		return
	}
	s.logger.Debug().Str("actor_id", item.ActorID).Msg("actor profile missing")
}

func titleOrFallback(titles map[uint]string, postID uint) string {
	if title, ok := titles[postID]; ok {
		return title
	}
	return dto.DeletedPostLabel
}

func (s *notificationService) MarkRead(ctx context.Context, viewerID string, ref dto.NotificationRef) error {
	return s.readState.MarkRead(ctx, viewerID, ref)
}

func (s *notificationService) MarkUnread(ctx context.Context, viewerID string, ref dto.NotificationRef) error {
	return s.readState.MarkUnread(ctx, viewerID, ref)
}

func (s *notificationService) MarkAllRead(ctx context.Context, viewerID string) error {
	refs, err := s.currentRefs(ctx, viewerID)
	if err != nil {
		return err
	}
	return s.readState.MarkAllRead(ctx, viewerID, refs)
}

func (s *notificationService) MarkAllUnread(ctx context.Context, viewerID string) error {
	refs, err := s.currentRefs(ctx, viewerID)
	if err != nil {
		return err
	}
	return s.readState.MarkAllUnread(ctx, viewerID, refs)
}

func (s *notificationService) HasUnread(ctx context.Context, viewerID string) (bool, error) {
	refs, err := s.currentRefs(ctx, viewerID)
	if err != nil {
		return false, err
	}
	return s.readState.HasUnread(ctx, viewerID, refs)
}

func (s *notificationService) currentRefs(ctx context.Context, viewerID string) ([]dto.NotificationRef, error) {
	feed, err := s.aggregate(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	refs := make([]dto.NotificationRef, 0, len(feed))
	for _, item := range feed {
		refs = append(refs, item.Ref())
	}
	return refs, nil
}

package service

import (
	"context"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/repository"
)

// PostService serves the discovery feed: listing, search and filtering.
type PostService interface {
	Feed(ctx context.Context, query dto.PostQuery) (dto.PostFeedResponse, error)
	Get(ctx context.Context, id uint) (dto.PostResponse, error)
}

type postService struct {
	repo      repository.PostRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPostService constructs the post feed service.
func NewPostService(repo repository.PostRepository, validate *validator.Validate, logger zerolog.Logger) PostService {
	return &postService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "post_service").Logger(),
	}
}

func (s *postService) Feed(ctx context.Context, query dto.PostQuery) (dto.PostFeedResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.PostFeedResponse{}, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	filter := repository.PostFilter{
		Search:   strings.TrimSpace(query.Search),
		Category: strings.TrimSpace(query.Category),
		Location: strings.TrimSpace(query.Location),
		Price:    strings.TrimSpace(query.Price),
		Season:   strings.TrimSpace(query.Season),
		From:     query.From,
		To:       query.To,
		Page:     page,
		PageSize: pageSize,
	}

	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.PostFeedResponse{}, err
	}

	pagination := dto.PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}

	return dto.PostFeedResponse{
		Items:      dto.NewPostResponseSlice(posts),
		Pagination: pagination,
	}, nil
}

func (s *postService) Get(ctx context.Context, id uint) (dto.PostResponse, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.PostResponse{}, err
	}
	return dto.NewPostResponse(post), nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sbel2/citale-api/internal/dto"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// Post media is images or a single mp4; avatars are images only.
var allowedUploadTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
	"video/mp4":  {},
}

// FileStorage abstracts the object storage destination.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Remove(ctx context.Context, name string) error
}

// UploadService validates and stores media files.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, userID string) (dto.UploadResponse, error)
	Remove(ctx context.Context, name string) error
}

type uploadService struct {
	storage FileStorage
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	return &uploadService{
		storage: storage,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/sbel2/citale-api/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, userID string) (dto.UploadResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "upload.store", trace.WithAttributes(
		attribute.String("upload.user_id", userID),
		attribute.Int64("upload.size", file.Size),
	))
	defer span.End()

	if file.Size > s.maxSize {
		span.SetStatus(codes.Error, "too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	source, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	defer func() {
		_ = source.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(source, s.maxSize+1))
	if err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	if int64(len(payload)) > s.maxSize {
		span.SetStatus(codes.Error, "too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(payload)
	if _, ok := allowedUploadTypes[detected.String()]; !ok {
		span.SetStatus(codes.Error, "type not allowed")
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	name := strings.TrimSpace(file.Filename)
	url, err := s.storage.Upload(spanCtx, name, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Str("file", name).Str("type", detected.String()).Msg("media stored")

	return dto.UploadResponse{
		URL:         url,
		FileName:    name,
		ContentType: detected.String(),
		Size:        int64(len(payload)),
	}, nil
}

func (s *uploadService) Remove(ctx context.Context, name string) error {
	return s.storage.Remove(ctx, name)
}

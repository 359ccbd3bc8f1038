package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/models"
	"github.com/sbel2/citale-api/internal/observability"
	"github.com/sbel2/citale-api/internal/repository"
)

const (
	threadUpdateBuffer = 1
	// pendingTTL bounds how long an optimistic entry survives without its
	// server-confirmed counterpart arriving.
	pendingTTL = 30 * time.Second
)

// ErrEmptyMessage indicates the message content was empty after sanitization.
var ErrEmptyMessage = errors.New("message content empty after sanitization")

// ThreadService keeps two-party message threads fresh. Reads are served from
// the relational store; live sessions are refreshed by a periodic poll and by
// push events fanned out over redis pub/sub and NATS.
type ThreadService interface {
	Messages(ctx context.Context, viewerID, partnerID string) ([]dto.MessageResponse, error)
	Send(ctx context.Context, viewerID, partnerID string, req dto.MessageSendRequest) (dto.MessageResponse, error)
	MarkRead(ctx context.Context, viewerID, partnerID string) error
	OpenSession(ctx context.Context, viewerID, partnerID string) (*ThreadSession, error)
	Start(ctx context.Context)
}

type threadService struct {
	repo         repository.ChatRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	pollInterval time.Duration
	registry     *threadRegistry
	nodeID       string
}

type threadEvent struct {
	Source  string              `json:"source"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

type threadRegistry struct {
	mu       sync.RWMutex
	sessions map[string]map[*ThreadSession]struct{}
}

// NewThreadService constructs the thread sync service.
func NewThreadService(repo repository.ChatRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, pollInterval time.Duration, logger zerolog.Logger) ThreadService {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":chat"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &threadService{
		repo:         repo,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "thread_service").Logger(),
		tracer:       otel.Tracer("github.com/sbel2/citale-api/internal/service/thread"),
		pollInterval: pollInterval,
		registry: &threadRegistry{
			sessions: make(map[string]map[*ThreadSession]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *threadService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *threadService) Messages(ctx context.Context, viewerID, partnerID string) ([]dto.MessageResponse, error) {
	messages, err := s.repo.ListBetween(ctx, viewerID, partnerID)
	if err != nil {
		return nil, err
	}
	return dto.NewMessageResponseSlice(messages), nil
}

func (s *threadService) Send(ctx context.Context, viewerID, partnerID string, req dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if clean == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("chat.sender_id", viewerID),
		attribute.String("chat.receiver_id", partnerID),
	))
	defer span.End()

	model := models.ChatMessage{
		SenderID:   viewerID,
		ReceiverID: partnerID,
		Content:    clean,
		SentAt:     time.Now().UTC(),
	}

	if err := s.repo.Save(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(model)
	response.CorrelationID = correlationID

	observability.MessagesSent().Inc()

	s.registry.dispatch(threadKey(viewerID, partnerID), response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}

	return response, nil
}

func (s *threadService) MarkRead(ctx context.Context, viewerID, partnerID string) error {
	return s.repo.MarkThreadRead(ctx, viewerID, partnerID)
}

// OpenSession starts a live sync session for a thread. The first snapshot is
// fetched synchronously so the session emits an initial state right away;
// afterwards a poll loop and push events keep it fresh until Close.
func (s *threadService) OpenSession(ctx context.Context, viewerID, partnerID string) (*ThreadSession, error) {
	sessionCtx, cancel := context.WithCancel(ctx)

	session := &ThreadSession{
		service:   s,
		viewerID:  viewerID,
		partnerID: partnerID,
		updates:   make(chan []dto.MessageResponse, threadUpdateBuffer),
		pending:   make(map[string]dto.MessageResponse),
		cancel:    cancel,
		closed:    make(chan struct{}),
	}

	s.registry.register(threadKey(viewerID, partnerID), session)
	observability.ThreadSessionsActive().Inc()

	session.refresh(sessionCtx)
	go session.run(sessionCtx)

	return session, nil
}

func (s *threadService) publish(ctx context.Context, message dto.MessageResponse) error {
	event := threadEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *threadService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *threadService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "citale-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *threadService) handleEvent(data []byte) {
	var event threadEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.registry.dispatch(threadKey(event.Message.SenderID, event.Message.ReceiverID), event.Message)
}

// threadKey identifies a two-party thread regardless of direction.
func threadKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (r *threadRegistry) register(key string, session *ThreadSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[key]; !exists {
		r.sessions[key] = make(map[*ThreadSession]struct{})
	}
	r.sessions[key][session] = struct{}{}
}

func (r *threadRegistry) unregister(key string, session *ThreadSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessions, ok := r.sessions[key]; ok {
		delete(sessions, session)
		if len(sessions) == 0 {
			delete(r.sessions, key)
		}
	}
}

func (r *threadRegistry) dispatch(key string, message dto.MessageResponse) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for session := range r.sessions[key] {
		session.applyConfirmed(message)
	}
}

// ThreadSession is a live view over one conversation thread. It merges the
// confirmed server state with pending optimistic sends and emits the merged
// list whenever it actually changes.
type ThreadSession struct {
	service   *threadService
	viewerID  string
	partnerID string

	updates chan []dto.MessageResponse

	mu        sync.Mutex
	confirmed []dto.MessageResponse
	pending   map[string]dto.MessageResponse
	snapshot  [sha256.Size]byte

	inFlight atomic.Bool
	cancel   context.CancelFunc
	closed   chan struct{}
	once     sync.Once
}

// Updates delivers the merged message list. Only changed states are emitted;
// a slow consumer sees the latest state, intermediate ones may be dropped.
func (t *ThreadSession) Updates() <-chan []dto.MessageResponse {
	return t.updates
}

// Done is closed when the session has been torn down.
func (t *ThreadSession) Done() <-chan struct{} {
	return t.closed
}

// Send optimistically appends the message, persists it and reconciles the
// pending entry with the confirmed row via its correlation id.
func (t *ThreadSession) Send(ctx context.Context, req dto.MessageSendRequest) (dto.MessageResponse, error) {
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}

	optimistic := dto.MessageResponse{
		SenderID:      t.viewerID,
		ReceiverID:    t.partnerID,
		Content:       req.Content,
		SentAt:        time.Now().UTC(),
		CorrelationID: req.CorrelationID,
		Pending:       true,
	}

	t.mu.Lock()
	t.pending[req.CorrelationID] = optimistic
	view := t.mergedLocked()
	t.mu.Unlock()
	t.emit(view)

	confirmed, err := t.service.Send(ctx, t.viewerID, t.partnerID, req)
	if err != nil {
		t.mu.Lock()
		delete(t.pending, req.CorrelationID)
		view := t.mergedLocked()
		t.mu.Unlock()
		t.emit(view)
		return dto.MessageResponse{}, err
	}

	// The registry dispatch from service.Send already reconciled this
	// session; returning the confirmed row lets the caller ack it.
	return confirmed, nil
}

// Close tears the session down: the poll loop stops and no further updates
// are emitted.
func (t *ThreadSession) Close() {
	t.once.Do(func() {
		close(t.closed)
		t.cancel()
		t.service.registry.unregister(threadKey(t.viewerID, t.partnerID), t)
		observability.ThreadSessionsActive().Dec()
	})
}

func (t *ThreadSession) run(ctx context.Context) {
	ticker := time.NewTicker(t.service.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.refresh(ctx)
		case <-ctx.Done():
			return
		case <-t.closed:
			return
		}
	}
}

// refresh fetches the authoritative thread state. A tick is skipped while a
// previous fetch is still outstanding so slow queries cannot pile up.
func (t *ThreadSession) refresh(ctx context.Context) {
	if !t.inFlight.CompareAndSwap(false, true) {
		observability.ThreadPollTicks().WithLabelValues("skipped").Inc()
		return
	}
	defer t.inFlight.Store(false)

	messages, err := t.service.Messages(ctx, t.viewerID, t.partnerID)
	if err != nil {
		// Background refresh failures are silent; the next tick retries.
		t.service.logger.Debug().Err(err).
			Str("viewer_id", t.viewerID).
			Str("partner_id", t.partnerID).
			Msg("thread poll failed")
		observability.ThreadPollTicks().WithLabelValues("error").Inc()
		return
	}

	hash := snapshotHash(messages)

	t.mu.Lock()
	pruned := t.prunePendingLocked()
	if hash == t.snapshot && !pruned {
		t.mu.Unlock()
		observability.ThreadPollTicks().WithLabelValues("unchanged").Inc()
		return
	}

	t.confirmed = messages
	t.snapshot = hash
	view := t.mergedLocked()
	t.mu.Unlock()

	t.emit(view)
	observability.ThreadPollTicks().WithLabelValues("ok").Inc()
}

// applyConfirmed folds a server-confirmed message into the session, removing
// its optimistic counterpart if one is pending.
func (t *ThreadSession) applyConfirmed(message dto.MessageResponse) {
	t.mu.Lock()
	if message.CorrelationID != "" {
		delete(t.pending, message.CorrelationID)
	}

	duplicate := false
	for _, existing := range t.confirmed {
		if existing.ID != 0 && existing.ID == message.ID {
			duplicate = true
			break
		}
	}

	if !duplicate {
		t.confirmed = append(t.confirmed, message)
		sort.SliceStable(t.confirmed, func(i, j int) bool {
			return t.confirmed[i].SentAt.Before(t.confirmed[j].SentAt)
		})
		t.snapshot = snapshotHash(t.confirmed)
	}

	view := t.mergedLocked()
	t.mu.Unlock()

	t.emit(view)
}

// prunePendingLocked drops optimistic entries whose confirmation never
// arrived. Reports whether anything was removed.
func (t *ThreadSession) prunePendingLocked() bool {
	cutoff := time.Now().UTC().Add(-pendingTTL)
	pruned := false
	for id, message := range t.pending {
		if message.SentAt.Before(cutoff) {
			delete(t.pending, id)
			pruned = true
			t.service.logger.Warn().
				Str("correlation_id", id).
				Msg("dropping optimistic message without confirmation")
		}
	}
	return pruned
}

func (t *ThreadSession) mergedLocked() []dto.MessageResponse {
	view := make([]dto.MessageResponse, 0, len(t.confirmed)+len(t.pending))
	view = append(view, t.confirmed...)
	for _, message := range t.pending {
		view = append(view, message)
	}
	sort.SliceStable(view, func(i, j int) bool {
		return view[i].SentAt.Before(view[j].SentAt)
	})
	return view
}

// emit replaces any undelivered state with the newest one.
func (t *ThreadSession) emit(view []dto.MessageResponse) {
	select {
	case <-t.closed:
		return
	default:
	}

	for {
		select {
		case t.updates <- view:
			return
		default:
			select {
			case <-t.updates:
			default:
			}
		}
	}
}

// snapshotHash digests only server-persisted fields. A row confirmed through
// dispatch still carries its correlation id while the same row fetched back
// from the repository does not; both must hash identically or every poll
// after a send would look like a change.
func snapshotHash(messages []dto.MessageResponse) [sha256.Size]byte {
	digest := sha256.New()
	for _, message := range messages {
		fmt.Fprintf(digest, "%d|%s|%s|%s|%d|%t\n",
			message.ID, message.SenderID, message.ReceiverID,
			message.Content, message.SentAt.UnixNano(), message.IsRead)
	}
	var hash [sha256.Size]byte
	copy(hash[:], digest.Sum(nil))
	return hash
}

package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/forumnotify/pkg/logger"
	"github.com/dmitrymomot/forumnotify/pkg/validator"
)

// Service is the notification delivery engine: it gates, persists and
// publishes notifications and owns their read state.
type Service struct {
	store    Storage
	settings *SettingsResolver
	users    UserDirectory
	bus      Publisher
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for best-effort failures such as directory
// lookups and recorder errors.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source. Quiet hours are evaluated against the
// hour of the returned time in its own location.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder receives created and suppressed counts, typically metrics.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService wires the engine. A nil bus disables live delivery.
func NewService(store Storage, settings SettingsStorage, users UserDirectory, bus Publisher, opts ...ServiceOption) *Service {
	if bus == nil {
		bus = noopPublisher{}
	}
	s := &Service{
		store:    store,
		users:    users,
		bus:      bus,
		recorder: noopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("notifications"))
	s.settings = NewSettingsResolver(settings, users, s.now)
	return s
}

// Settings exposes the settings resolver used by the service.
func (s *Service) Settings() *SettingsResolver {
	return s.settings
}

// EnsureUser returns ErrUserNotFound when the directory does not know userID.
func (s *Service) EnsureUser(ctx context.Context, userID int64) error {
	return ensureUser(ctx, s.users, userID)
}

// Create runs c through the delivery policy and persists it when accepted.
// A suppressed candidate yields created == false and a nil error.
func (s *Service) Create(ctx context.Context, c Candidate) (id int64, created bool, err error) {
	if err := validateCandidate(c); err != nil {
		return 0, false, err
	}
	if err := s.EnsureUser(ctx, c.RecipientID); err != nil {
		return 0, false, err
	}

	settings, err := s.settings.get(ctx, c.RecipientID)
	if err != nil {
		return 0, false, err
	}

	now := s.now()
	if d := Evaluate(settings, c, now); !d.Accepted {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "notification suppressed",
			logger.UserID(c.RecipientID),
			logger.ActorID(c.ActorID),
			logger.Kind(string(c.Kind)),
			logger.Reason(string(d.Reason)),
		)
		s.recorder.NotificationSuppressed(c.Kind, d.Reason)
		return 0, false, nil
	}

	n, err := s.store.Create(ctx, Notification{
		UserID:      c.RecipientID,
		ActorID:     c.ActorID,
		Kind:        c.Kind,
		Title:       c.Title,
		Content:     c.Content,
		RelatedType: c.RelatedType,
		RelatedID:   c.RelatedID,
		CreatedAt:   now,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to store notification: %w", err)
	}
	s.recorder.NotificationCreated(n.Kind)

	s.publish(ctx, n.UserID, Event{
		Type:           EventCreated,
		NotificationID: n.ID,
		Notification:   &n,
	})
	return n.ID, true, nil
}

// CreateSystem creates an actor-less system notification. It ignores quiet
// hours but respects the recipient's system toggle.
func (s *Service) CreateSystem(ctx context.Context, sn SystemNotification) (int64, bool, error) {
	return s.Create(ctx, sn.Candidate())
}

func validateCandidate(c Candidate) error {
	err := validator.Apply(
		validator.Positive("recipientId", c.RecipientID),
		validator.OneOf("type", c.Kind, Kinds),
		validator.Required("title", c.Title),
		validator.MaxLen("title", c.Title, MaxTitleLength),
		validator.When(c.ActorID != nil, validator.Positive("actorId", deref(c.ActorID))),
		validator.When(c.Kind == KindSystem, validator.Check("actorId", c.ActorID == nil, "must be empty for system notifications")),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

// List returns a page of the user's notifications, newest first, with actor
// profiles attached.
func (s *Service) List(ctx context.Context, userID int64, params ListParams) (Page, error) {
	if err := s.EnsureUser(ctx, userID); err != nil {
		return Page{}, err
	}

	p := params.Normalize()
	rows, total, err := s.store.List(ctx, userID, ListOptions{
		Limit:      p.PageSize,
		Offset:     p.Offset(),
		OnlyUnread: p.UnreadOnly,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to list notifications: %w", err)
	}

	return Page{
		Items:      s.attachActors(ctx, rows),
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages(total, p.PageSize),
	}, nil
}

// attachActors is best effort: a directory failure leaves actors empty.
func (s *Service) attachActors(ctx context.Context, rows []Notification) []Item {
	items := make([]Item, len(rows))
	ids := make([]int64, 0, len(rows))
	for i, n := range rows {
		items[i].Notification = n
		if n.ActorID != nil && !slices.Contains(ids, *n.ActorID) {
			ids = append(ids, *n.ActorID)
		}
	}
	if len(ids) == 0 {
		return items
	}

	profiles, err := s.users.Profiles(ctx, ids)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to load actor profiles", logger.Error(err))
		return items
	}
	for i := range items {
		if a := items[i].ActorID; a != nil {
			if p, ok := profiles[*a]; ok {
				items[i].Actor = &Actor{ID: p.ID, Username: p.Username, AvatarURL: p.AvatarURL}
			}
		}
	}
	return items
}

// UnreadCount is recomputed from storage on every call.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if err := s.EnsureUser(ctx, userID); err != nil {
		return 0, err
	}
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead transitions one notification to read. Repeated calls are no-ops
// returning changed == false. Notifications of other users are reported as
// ErrNotificationNotFound.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) (changed bool, err error) {
	if err := s.EnsureUser(ctx, userID); err != nil {
		return false, err
	}
	if notificationID <= 0 {
		return false, ErrNotificationNotFound
	}

	changed, err = s.store.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !changed {
		return false, nil
	}
	s.recorder.NotificationsRead(1)

	s.publish(ctx, userID, Event{Type: EventRead, NotificationID: notificationID})
	return true, nil
}

// MarkAllRead transitions every notification that is unread at execution
// time and returns how many changed. Rows inserted concurrently after the
// update stay unread.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	if err := s.EnsureUser(ctx, userID); err != nil {
		return 0, err
	}

	n, err := s.store.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	s.recorder.NotificationsRead(n)

	s.publish(ctx, userID, Event{Type: EventReadAll, Updated: n})
	return n, nil
}

// publish stamps ev with a freshly computed unread count and hands it to the
// bus. Failures are logged: the state change is already committed and
// clients re-sync on reconnect.
func (s *Service) publish(ctx context.Context, userID int64, ev Event) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to count unread notifications, event not published",
			logger.UserID(userID),
			logger.EventType(string(ev.Type)),
			logger.Error(err),
		)
		return
	}
	ev.UnreadCount = count
	ev.Timestamp = s.now()

	delivered := s.bus.Publish(ctx, userID, ev)
	s.logger.LogAttrs(ctx, slog.LevelDebug, "notification event published",
		logger.UserID(userID),
		logger.EventType(string(ev.Type)),
		logger.Count(delivered),
	)
}

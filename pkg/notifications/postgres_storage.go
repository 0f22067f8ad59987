package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/forumnotify/pkg/pg"
)

// DB is the subset of *pgxpool.Pool used by PostgresStorage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage implements Storage, SettingsStorage and UserDirectory on
// PostgreSQL. The schema lives in db/migrations.
type PostgresStorage struct {
	db DB
}

// NewPostgresStorage wraps db, usually a *pgxpool.Pool.
func NewPostgresStorage(db DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const notificationColumns = `id, user_id, actor_id, type, title, content, related_type, related_id, is_read, read_at, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var kind string
	err := row.Scan(&n.ID, &n.UserID, &n.ActorID, &kind, &n.Title, &n.Content,
		&n.RelatedType, &n.RelatedID, &n.IsRead, &n.ReadAt, &n.CreatedAt)
	n.Kind = Kind(kind)
	return n, err
}

// Create inserts n and returns it with the generated id. A foreign key
// violation on user_id is reported as ErrUserNotFound.
func (s *PostgresStorage) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, actor_id, type, title, content, related_type, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+notificationColumns,
		n.UserID, n.ActorID, string(n.Kind), n.Title, n.Content, n.RelatedType, n.RelatedID, n.CreatedAt,
	)
	created, err := scanNotification(row)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return Notification{}, ErrUserNotFound
		}
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return created, nil
}

// List counts the matching rows, then fetches one page ordered by id desc.
// An offset at or past the total skips the page query.
func (s *PostgresStorage) List(ctx context.Context, userID int64, opts ListOptions) ([]Notification, int, error) {
	if opts.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset", ErrInvalidArgument)
	}

	var total int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE user_id = $1 AND (NOT $2::boolean OR NOT is_read)`,
		userID, opts.OnlyUnread,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	if opts.Offset >= total {
		return []Notification{}, total, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = MaxPageSize
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND (NOT $2::boolean OR NOT is_read)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`,
		userID, opts.OnlyUnread, limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

// CountUnread counts unread rows for the user.
func (s *PostgresStorage) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead flips is_read only while it is false, so read_at keeps the
// first transition.
func (s *PostgresStorage) MarkRead(ctx context.Context, userID, notificationID int64, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $3
		WHERE id = $1 AND user_id = $2 AND NOT is_read`,
		notificationID, userID, at,
	)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`,
		notificationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if !exists {
		return false, ErrNotificationNotFound
	}
	return false, nil
}

// MarkAllRead returns the number of rows it changed.
func (s *PostgresStorage) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT is_read`,
		userID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

const settingsColumns = `user_id, thread_reply_enabled, post_reply_enabled, mention_enabled, post_liked_enabled,
	follow_enabled, system_enabled, quiet_hours_enabled, quiet_hours_start, quiet_hours_end, updated_at`

func scanSettings(row pgx.Row) (Settings, error) {
	var st Settings
	err := row.Scan(&st.UserID, &st.ThreadReplyEnabled, &st.PostReplyEnabled, &st.MentionEnabled,
		&st.PostLikedEnabled, &st.FollowEnabled, &st.SystemEnabled, &st.QuietHoursEnabled,
		&st.QuietHoursStart, &st.QuietHoursEnd, &st.UpdatedAt)
	return st, err
}

// GetOrCreate inserts defaults with ON CONFLICT DO NOTHING and reads back
// the winning row, so concurrent first reads agree.
func (s *PostgresStorage) GetOrCreate(ctx context.Context, defaults Settings) (Settings, error) {
	d := defaults
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_settings (`+settingsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO NOTHING`,
		d.UserID, d.ThreadReplyEnabled, d.PostReplyEnabled, d.MentionEnabled, d.PostLikedEnabled,
		d.FollowEnabled, d.SystemEnabled, d.QuietHoursEnabled, d.QuietHoursStart, d.QuietHoursEnd, d.UpdatedAt,
	)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return Settings{}, ErrUserNotFound
		}
		return Settings{}, fmt.Errorf("provision settings: %w", err)
	}

	st, err := scanSettings(s.db.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM notification_settings WHERE user_id = $1`, d.UserID))
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return st, nil
}

// Update applies the non-nil fields of p.
func (s *PostgresStorage) Update(ctx context.Context, userID int64, p SettingsPatch, at time.Time) (Settings, error) {
	st, err := scanSettings(s.db.QueryRow(ctx, `
		UPDATE notification_settings SET
			thread_reply_enabled = COALESCE($2, thread_reply_enabled),
			post_reply_enabled   = COALESCE($3, post_reply_enabled),
			mention_enabled      = COALESCE($4, mention_enabled),
			post_liked_enabled   = COALESCE($5, post_liked_enabled),
			follow_enabled       = COALESCE($6, follow_enabled),
			system_enabled       = COALESCE($7, system_enabled),
			quiet_hours_enabled  = COALESCE($8, quiet_hours_enabled),
			quiet_hours_start    = COALESCE($9::smallint, quiet_hours_start),
			quiet_hours_end      = COALESCE($10::smallint, quiet_hours_end),
			updated_at           = $11
		WHERE user_id = $1
		RETURNING `+settingsColumns,
		userID, p.ThreadReplyEnabled, p.PostReplyEnabled, p.MentionEnabled, p.PostLikedEnabled,
		p.FollowEnabled, p.SystemEnabled, p.QuietHoursEnabled, p.QuietHoursStart, p.QuietHoursEnd, at,
	))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Settings{}, ErrUserNotFound
		}
		return Settings{}, fmt.Errorf("update settings: %w", err)
	}
	return st, nil
}

// Exists reports whether a users row with userID exists.
func (s *PostgresStorage) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

// Profiles loads usernames and avatars for ids. Missing ids are absent
// from the result.
func (s *PostgresStorage) Profiles(ctx context.Context, ids []int64) (map[int64]Profile, error) {
	out := make(map[int64]Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, username, COALESCE(avatar_url, ''), role FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.AvatarURL, &p.Role); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return out, nil
}

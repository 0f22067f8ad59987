package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/forumnotify/handler"
	"github.com/dmitrymomot/forumnotify/pkg/jwt"
	"github.com/dmitrymomot/forumnotify/pkg/logger"
	"github.com/dmitrymomot/forumnotify/pkg/notifications"
)

// currentUser returns the authenticated user id from the verified claims.
func currentUser(ctx context.Context) (int64, error) {
	claims, ok := jwt.GetClaims(ctx)
	if !ok {
		return 0, notifications.ErrUnauthorized
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", notifications.ErrUnauthorized, err)
	}
	return id, nil
}

// requireRole rejects callers whose token role differs from role.
func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := jwt.GetClaims(r.Context())
			if !ok {
				_ = handler.JSONError(MapError(notifications.ErrUnauthorized)).Render(w, r)
				return
			}
			if claims.Role != role {
				err := fmt.Errorf("%w: role %q required", notifications.ErrForbidden, role)
				_ = handler.JSONError(MapError(err)).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// fail renders err as a JSON error and logs server errors.
func (m *Module) fail(ctx handler.Context, err error) handler.Response {
	err = MapError(err)
	if status, _ := handler.ErrorStatus(err); status >= http.StatusInternalServerError {
		m.logger.ErrorContext(ctx, "notifications request failed",
			logger.Error(err),
			slog.String("method", ctx.Request().Method),
			slog.String("path", ctx.Request().URL.Path),
		)
	}
	return handler.JSONError(err)
}

func (m *Module) list(ctx handler.Context, req ListRequest) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	page, err := m.svc.List(ctx, userID, req.params())
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(page)
}

type unreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

func (m *Module) unreadCount(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	n, err := m.svc.UnreadCount(ctx, userID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(unreadCountResponse{UnreadCount: n})
}

type markReadResponse struct {
	Changed bool `json:"changed"`
}

func (m *Module) markRead(ctx handler.Context, req MarkReadRequest) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	if req.ID <= 0 {
		return handler.JSONError(handler.ErrNotFound)
	}
	changed, err := m.svc.MarkRead(ctx, userID, req.ID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(markReadResponse{Changed: changed})
}

type markAllReadResponse struct {
	Updated int `json:"updated"`
}

func (m *Module) markAllRead(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	n, err := m.svc.MarkAllRead(ctx, userID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(markAllReadResponse{Updated: n})
}

func (m *Module) getSettings(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	st, err := m.svc.Settings().Get(ctx, userID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(st)
}

func (m *Module) updateSettings(ctx handler.Context, req UpdateSettingsRequest) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	st, err := m.svc.Settings().Update(ctx, userID, req.patch())
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(st)
}

type createSystemResponse struct {
	ID      int64 `json:"id,omitempty"`
	Created bool  `json:"created"`
}

func (m *Module) createSystem(ctx handler.Context, req SystemRequest) handler.Response {
	id, created, err := m.svc.CreateSystem(ctx, req.notification())
	if err != nil {
		return m.fail(ctx, err)
	}
	if !created {
		return handler.JSON(createSystemResponse{Created: false})
	}
	return handler.JSON(createSystemResponse{ID: id, Created: true},
		handler.WithJSONStatus(http.StatusCreated),
	)
}

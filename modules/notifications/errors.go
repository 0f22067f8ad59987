package notifications

import (
	"errors"

	"github.com/dmitrymomot/forumnotify/handler"
	"github.com/dmitrymomot/forumnotify/pkg/notifications"
)

// MapError attaches the HTTP status of a domain error. Errors it does not
// recognise pass through unchanged.
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notifications.ErrNotFound):
		return errors.Join(handler.ErrNotFound, err)
	case errors.Is(err, notifications.ErrForbidden):
		return errors.Join(handler.ErrForbidden, err)
	case errors.Is(err, notifications.ErrUnauthorized):
		return errors.Join(handler.ErrUnauthorized, err)
	case errors.Is(err, notifications.ErrInvalidArgument):
		return errors.Join(handler.ErrBadRequest, err)
	default:
		return err
	}
}

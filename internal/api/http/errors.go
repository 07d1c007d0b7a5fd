package httpapi

import (
	"errors"
	"net/http"

	appAuth "github.com/barter-hub/barter-hub/internal/application/auth"
	appExchange "github.com/barter-hub/barter-hub/internal/application/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/image"
	"github.com/barter-hub/barter-hub/internal/domain/item"
	"github.com/barter-hub/barter-hub/internal/domain/user"
)

// respondServiceError maps a service error to a status and error code.
// Errors it does not recognise get fallback; 5xx responses hide the message.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status, code := classify(err, fallback)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, status, code, http.StatusText(status))
		return
	}
	respondError(w, status, code, err.Error())
}

func classify(err error, fallback int) (int, string) {
	var tooLarge *image.TooLargeError
	switch {
	case exchange.IsValidation(err),
		errors.As(err, &tooLarge),
		errors.Is(err, image.ErrTooMany),
		errors.Is(err, image.ErrUnsupportedType),
		errors.Is(err, image.ErrEmpty),
		errors.Is(err, appExchange.ErrInvalidBox):
		return http.StatusBadRequest, "INVALID_PARAM"
	case errors.Is(err, appAuth.ErrUnauthenticated),
		errors.Is(err, appAuth.ErrInvalidCredentials),
		errors.Is(err, appAuth.ErrUserDisabled):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, exchange.ErrUnauthorized),
		errors.Is(err, item.ErrNotOwner):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, exchange.ErrNotFound),
		errors.Is(err, item.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case exchange.IsInvalidState(err),
		errors.Is(err, exchange.ErrContactsLocked),
		errors.Is(err, item.ErrLocked):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, exchange.ErrItemNotAvailable):
		return http.StatusConflict, "ITEM_NOT_AVAILABLE"
	case errors.Is(err, exchange.ErrAlreadyRated):
		return http.StatusConflict, "ALREADY_RATED"
	case errors.Is(err, exchange.ErrConcurrentUpdate),
		errors.Is(err, user.ErrUsernameTaken):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, image.ErrStoreDisabled):
		return http.StatusServiceUnavailable, "IMAGES_DISABLED"
	}
	switch fallback {
	case http.StatusBadRequest:
		return fallback, "INVALID_PARAM"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

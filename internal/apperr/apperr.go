// Package apperr defines the application error taxonomy. Handlers and
// services return these sentinels (optionally wrapped); the router's error
// handler maps them to HTTP statuses in one place.
package apperr

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrPostNotFound      = errors.New("post not found")
	ErrAlarmNotFound     = errors.New("alarm not found")
	ErrDuplicateUsername = errors.New("duplicated username")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrAlreadyLiked      = errors.New("already liked")
	ErrInvalidToken      = errors.New("invalid token")

	// ErrAlarmConnect reports a delivery-layer failure on a live alarm
	// channel. When returned from a dispatch it means the alarm record was
	// already committed; callers must not treat it as a business failure.
	ErrAlarmConnect = errors.New("alarm connect error")
)

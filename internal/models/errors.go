package models

import "errors"

// Domain errors returned by services. Handlers map these to HTTP statuses
// with errors.Is; services wrap them with fmt.Errorf and %w for context.
var (
	// ErrNotFound means the requested alert, channel, user or profile does not exist
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied means the caller is not allowed to act on the resource,
	// e.g. a non-participant writing to a channel
	ErrAccessDenied = errors.New("access denied")

	// ErrAlertAlreadyResolved means the alert reached its terminal state and
	// cannot accept new responders
	ErrAlertAlreadyResolved = errors.New("alert already resolved")

	// ErrMessageRejected means moderation refused the message content
	ErrMessageRejected = errors.New("message rejected")

	// ErrChannelArchived means the channel is closed to new activity
	ErrChannelArchived = errors.New("channel archived")

	// ErrNotVerified means the companion has not passed verification
	ErrNotVerified = errors.New("companion not verified")
)

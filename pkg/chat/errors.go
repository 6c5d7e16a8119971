package chat

import "errors"

// Error kinds returned by registry and node operations. Callers classify
// with errors.Is; the transport layer maps kinds to protocol statuses.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrRateLimited      = errors.New("rate limited")
	ErrInvalidReply     = errors.New("invalid reply")
)

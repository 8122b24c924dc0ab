package auth

import "time"

const (
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRemoteTimeout bounds a call to the user service.
	DefaultRemoteTimeout = 5 * time.Second

	headerAuthorization = "Authorization"
	headerCookie        = "Cookie"
)

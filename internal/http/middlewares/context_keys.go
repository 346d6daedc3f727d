package middlewares

const (
	// gin context keys
	CtxRequestID = "request_id"
	CtxSession   = "auth.session"

	// SessionCookieName carries the signed session token between requests.
	SessionCookieName = "authhub_session"
)

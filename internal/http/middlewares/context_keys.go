package middlewares

// gin context keys shared between middlewares and handlers.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxEmail     = "auth.email"
	CtxUsername  = "auth.username"
	CtxRoles     = "auth.roles"
)

package classifier

// User-facing texts. None of them carries server internals.
const (
	msgTimeout           = "The request timed out. The server may be busy or your connection is slow. Please try again."
	msgConnectionRefused = "Unable to reach the server. It may be down or unreachable from your network."
	msgNetwork           = "A network error occurred. Please check your internet connection."

	msgInvalidInput  = "Invalid input data"
	msgSessionExpire = "Your session has expired. Please log in again."
	msgAuthFailed    = "Authentication failed. Please log in again."
	msgForbidden     = "You do not have permission to perform this action."
	msgNotFound      = "The requested resource was not found."
	msgConflict      = "The request conflicts with the current state of the resource."
	msgRateLimited   = "Too many requests. Please wait a moment and try again."
	msgServer        = "The server encountered an error. Please try again later."
	msgHTTPStatus    = "HTTP %d error"
)

package handler

const (
	errInternalServer = "Internal server error. Please try again."
	errTokenInvalid   = "Token is invalid or expired"
	errUnauthorized   = "Unauthorized access"

	errNoVerifiedUser   = "No verified account found with this email address"
	errUserExists       = "User already exists with this email"
	errOTPInvalid       = "Invalid or expired OTP. Please try again."
	errEmailNotSent     = "Failed to send verification email. Please try again."
	errEmailAndOTP      = "Email and OTP are required"
	errNoteNotFound     = "Note not found"
	errRefreshTokenMiss = "Refresh token is required"
)

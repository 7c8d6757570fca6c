package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenInvalid ErrCode = "TOKEN_INVALID"
	ErrTokenExpired ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Quiz-specific ─────────────────────────────────────────────────
	ErrQuizExpired          ErrCode = "QUIZ_EXPIRED"
	ErrQuizAlreadyCompleted ErrCode = "QUIZ_ALREADY_COMPLETED"
	ErrGenerationFailed     ErrCode = "GENERATION_FAILED"
	ErrPersistenceFailed    ErrCode = "PERSISTENCE_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrDailyLimitReached ErrCode = "DAILY_LIMIT_REACHED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to this quiz."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Quiz not found."

	// ─── Quiz-specific ─────────────────────────────────────────────────
	case ErrQuizExpired:
		return "This guest quiz has expired. Sign up to keep your quizzes."
	case ErrQuizAlreadyCompleted:
		return "This quiz has already been submitted."
	case ErrGenerationFailed:
		return "Failed to generate quiz. Please try again."
	case ErrPersistenceFailed:
		return "Failed to save quiz. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Guest quiz limit reached. Sign up for more quizzes or try again later."
	case ErrDailyLimitReached:
		return "Daily quiz limit reached. Upgrade to Pro for unlimited quizzes."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

package models

// RegistrationRequest holds the raw signup form fields. It is request-scoped
// and must never be persisted or logged as-is.
type RegistrationRequest struct {
	Email    string
	Password string
	Name     string
}

// RegistrationOutcome is the result kind of a single signup attempt.
type RegistrationOutcome int

const (
	OutcomeRegistered RegistrationOutcome = iota
	OutcomeMethodNotAllowed
	OutcomeMissingCredentials
	OutcomeInvalidEmail
	OutcomePasswordTooShort
	OutcomePasswordTooLong
	OutcomeEmailTaken
	OutcomeFailed
)

// RegistrationResponse is the wire shape returned by the signup endpoint.
type RegistrationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (o RegistrationOutcome) String() string {
	switch o {
	case OutcomeRegistered:
		return "registered"
	case OutcomeMethodNotAllowed:
		return "method_not_allowed"
	case OutcomeMissingCredentials:
		return "missing_credentials"
	case OutcomeInvalidEmail:
		return "invalid_email"
	case OutcomePasswordTooShort:
		return "password_too_short"
	case OutcomePasswordTooLong:
		return "password_too_long"
	case OutcomeEmailTaken:
		return "email_taken"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Success reports whether the outcome created a user.
func (o RegistrationOutcome) Success() bool {
	return o == OutcomeRegistered
}

// Message returns the human-readable text clients match on.
func (o RegistrationOutcome) Message() string {
	switch o {
	case OutcomeRegistered:
		return "User registered successfully."
	case OutcomeMethodNotAllowed:
		return "Only POST requests are allowed."
	case OutcomeMissingCredentials:
		return "Email and password are required."
	case OutcomeInvalidEmail:
		return "Invalid email format."
	case OutcomePasswordTooShort:
		return "Password must be at least 6 characters."
	case OutcomePasswordTooLong:
		return "Password must be at most 72 bytes."
	case OutcomeEmailTaken:
		return "Email is already registered."
	default:
		return "Failed to register user."
	}
}

func (o RegistrationOutcome) Response() RegistrationResponse {
	return RegistrationResponse{
		Success: o.Success(),
		Message: o.Message(),
	}
}

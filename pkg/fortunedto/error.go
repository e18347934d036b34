package fortunedto

// Error codes surfaced to chat replies.
const (
	CodeRoomNotAllowed = "room_not_allowed"
	CodeInvalidSlot    = "invalid_slot"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "fortune service error"
}

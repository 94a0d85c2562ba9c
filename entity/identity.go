package entity

const (
	RoleAttendee  = "attendee"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Identity is the caller as resolved by session validation.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

package model

// Session identifies who is acting for the duration of one request.
type Session struct {
	User UserSnapshot
}

// NewSession returns a session acting as u.
func NewSession(u User) Session {
	return Session{User: u.Snapshot()}
}

// IsAdmin reports whether the acting user holds the admin role.
func (s Session) IsAdmin() bool {
	return s.User.Role == RoleAdmin
}

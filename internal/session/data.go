package session

// PublicData is the part of a session that handlers may read.
type PublicData struct {
	Username string `json:"username,omitempty"`
	UserID   uint   `json:"userId,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Data is the serialized session payload.
type Data struct {
	User     *PublicData `json:"user"`
	Strategy string      `json:"strategy,omitempty"`
}

func (d Data) hasUser() bool {
	return d.User != nil && d.User.UserID != 0
}

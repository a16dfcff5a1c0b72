package model

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID        string    `json:"id" bson:"_id"`
	Alias     string    `json:"alias" bson:"alias"`
	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CallerIdentity is what the transport extracts from a verified token.
// UserID is only set when the token itself carries the resolved id.
type CallerIdentity struct {
	Subject string
	Role    string
	UserID  string
}

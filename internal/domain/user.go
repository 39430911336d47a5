package domain

// SessionUser is the Discord identity kept in the dashboard session.
type SessionUser struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Avatar        string   `json:"avatar"`
	Discriminator string   `json:"discriminator"`
	Roles         []string `json:"roles"`
}

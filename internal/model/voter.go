package model

type Voter struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Verified     bool   `json:"verified"`
	IsAdmin      bool   `json:"is_admin"`
	HasVoted     bool   `json:"has_voted"`
	Ctime        int64  `json:"created_at"`
	Mtime        int64  `json:"-"`
}

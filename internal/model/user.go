package model

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

type User struct {
	ID           string `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	Name         string `json:"name" db:"name"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	IsPro        bool   `json:"is_pro" db:"is_pro"`
	Avatar       string `json:"avatar" db:"avatar"`
	LastLogin    int64  `json:"last_login" db:"last_login"`
	Ctime        int64  `json:"ctime" db:"ctime"`
	Mtime        int64  `json:"mtime" db:"mtime"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PublicUser is the author information shown next to comments and reviews.
type PublicUser struct {
	ID     string `json:"id,omitempty" db:"id"`
	Name   string `json:"name" db:"name"`
	Avatar string `json:"avatar,omitempty" db:"avatar"`
	IsPro  bool   `json:"is_pro" db:"is_pro"`
}

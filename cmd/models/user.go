package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "Admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountName  string    `gorm:"column:account_name;size:25;not null" json:"account_name"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string    `gorm:"column:role;size:50;not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Posts    []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
	Comments []Comment `gorm:"foreignKey:UserID" json:"comments,omitempty"`
	Likes    []Like    `gorm:"foreignKey:UserID" json:"likes,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

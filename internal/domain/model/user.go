package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const DefaultRating = 1200

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	FullName       *string   `json:"full_name,omitempty"`
	Country        *string   `json:"country,omitempty"`
	Rating         int       `json:"rating"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type UserStatistics struct {
	UserID      string    `json:"user_id"`
	TotalSolved int       `json:"total_solved"`
	UpdatedAt   time.Time `json:"updated_at"`
}

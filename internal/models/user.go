// Package models contains the domain records shared by the stores, services and HTTP layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can author posts, likes and comments.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Username  string    `gorm:"size:30;uniqueIndex;not null" json:"username" bson:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	Password  string    `gorm:"not null" json:"-" bson:"password"`
	Bio       string    `gorm:"size:500" json:"bio" bson:"bio"`
	Avatar    string    `json:"avatar" bson:"avatar"`
	IsActive  bool      `gorm:"not null" json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Author is the public projection of a user embedded in posts and comments.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// Author projects u onto the fields exposed next to authored content.
func (u *User) Author() *Author {
	return &Author{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Avatar}
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape of a record identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

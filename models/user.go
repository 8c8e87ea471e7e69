package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles
const (
	RoleCitizen = "citizen"
	RoleAdmin   = "admin"
)

type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email,omitempty" json:"email,omitempty"`
	Password  string    `bson:"password,omitempty" json:"-"`
	Role      string    `bson:"role,omitempty" json:"role,omitempty"`
	AvatarURL string    `bson:"avatarUrl" json:"avatarUrl"`
	Points    int       `bson:"points" json:"points"`
	Rank      int       `bson:"-" json:"rank"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

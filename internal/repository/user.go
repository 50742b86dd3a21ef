package repository

import (
	"github.com/MyCarrier-DevOps/gitter/internal/cache"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// User is an author or committer identity. Both fields form the key, so a
// User never changes after creation.
type User struct {
	name  string
	email string
}

func newUser(data domain.UserData) *User {
	return &User{name: data.Name, email: data.Email}
}

// Name returns the display name.
func (u *User) Name() string { return u.name }

// Email returns the e-mail address.
func (u *User) Email() string { return u.email }

// Key returns the registry key, "name <email>".
func (u *User) Key() string { return u.String() }

func (u *User) String() string {
	return domain.UserData{Name: u.name, Email: u.email}.Key()
}

var userSyncer = cache.Syncer[string, *User, domain.UserData]{
	KeyOf: domain.UserData.Key,
	Create: func(data domain.UserData) (*User, error) {
		return newUser(data), nil
	},
	Update: func(*User, domain.UserData) bool { return false },
}

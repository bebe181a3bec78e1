package track

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 15

// User is a registered account.
type User struct {
	ID         int64  `json:"id"`
	ExtID      string `json:"ext_id"`
	Email      string `json:"email"`
	PasswdHash string `json:"-"`
}

// NewUser hashes the password and builds the record.
func NewUser(email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &User{Email: email, PasswdHash: string(hash)}, nil
}

// CheckPassword reports whether the password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswdHash), []byte(password)) == nil
}

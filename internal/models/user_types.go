package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles. Admins manage the catalog and order lifecycle,
// everyone else is a regular shopper.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User model. Pointer fields keep optional profile data out of the
// JSON response when unset.
type User struct {
	ID           int64   `json:"id" db:"id"`
	Role         string  `json:"role" db:"role"`
	Email        string  `json:"email" db:"email"`
	PasswordHash string  `json:"-" db:"password_hash"`
	FullName     string  `json:"fullName" db:"full_name"`
	PhoneNumber  *string `json:"phoneNumber,omitempty" db:"phone_number"`

	// Accounts are never hard-deleted; deactivation flips this flag.
	IsActive bool `json:"isActive" db:"is_active"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Password wraps bcrypt hashing so handlers never touch the raw hash.
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

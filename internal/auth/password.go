// Package auth holds the authentication building blocks: password hashing,
// the Google OAuth provider, signed OAuth state values, the session cookie and
// the middleware that turns that cookie into a user id on the request context.
//
// WHY BCRYPT?
// bcrypt is designed to be slow, which makes brute-force attacks expensive.
// It generates a random salt per hash and embeds salt and cost in the output,
// so the stored string is all you need to verify later:
//
//	$2a$10$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (10 rounds → 2^10 iterations)
//	 version
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// MaxPasswordBytes is bcrypt's input limit. Longer passwords are rejected
// instead of being silently truncated.
const MaxPasswordBytes = 72

var (
	ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")
	ErrInvalidPassword = errors.New("auth: invalid password")
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected: tests
// use 4, the minimum bcrypt allows.
type PasswordService struct {
	cost  int
	dummy []byte
}

// NewPasswordService creates a PasswordService. A cost of zero means DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost == 0 {
		cost = DefaultCost
	}
	// The dummy hash has the same cost as real ones so a comparison against
	// it takes as long as a genuine one.
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		// Only an out-of-range cost gets here; config validation rules it out.
		panic(fmt.Sprintf("auth: invalid bcrypt cost %d: %v", cost, err))
	}
	return &PasswordService{cost: cost, dummy: dummy}
}

// Hash hashes the given plaintext password with bcrypt.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// It returns ErrInvalidPassword on mismatch.
//
// bcrypt.CompareHashAndPassword compares in constant time, so response time
// does not reveal how much of the password was right.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyDummy burns the same time as Verify without a real hash. Call it when
// the account does not exist or has no password, so those cases cannot be told
// apart from a wrong password by timing.
func (p *PasswordService) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plaintext))
}

package identity

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordEncoder shapes the password before it is stored.
type PasswordEncoder interface {
	Encode(password string) (string, error)
}

// Plaintext stores the password unchanged. It is the default and is not a
// security boundary.
type Plaintext struct{}

func (Plaintext) Encode(password string) (string, error) {
	return password, nil
}

// Bcrypt stores a bcrypt hash.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Encode(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// EncoderByName maps the PASSWORD_ENCODING setting to an encoder.
func EncoderByName(name string) (PasswordEncoder, error) {
	switch name {
	case "", "plaintext":
		return Plaintext{}, nil
	case "bcrypt":
		return Bcrypt{}, nil
	default:
		return nil, fmt.Errorf("unknown password encoding %q", name)
	}
}

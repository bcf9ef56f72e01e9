package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidInvokerKey = errors.New("invalid invoker key")

// HashInvokerKey returns the bcrypt hash stored in jobs.invoker_key_hash.
func HashInvokerKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("invoker key must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckInvokerKey compares a presented key with the configured hash.
func CheckInvokerKey(hash, key string) error {
	if key == "" {
		return ErrInvalidInvokerKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrInvalidInvokerKey
	}
	return nil
}

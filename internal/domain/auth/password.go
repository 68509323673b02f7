package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"hrms/internal/apperr"
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword enforces at least 8 characters with upper, lower and digit.
func ValidatePassword(field, password string) error {
	if len(password) < 8 {
		return apperr.Validation(field, "must be at least 8 characters")
	}
	if len(password) > 72 {
		return apperr.Validation(field, "must be at most 72 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apperr.Validation(field, "must contain upper and lower case letters and a number")
	}
	return nil
}

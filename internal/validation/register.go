// Package validation holds the input rules for account registration and
// password changes. Everything here is pure.
package validation

import (
	"strings"
	"unicode/utf8"
)

// Minimum lengths, in characters, accepted for usernames and passwords.
const (
	MinUsernameLength = 3
	MinPasswordLength = 3
)

// FieldError names the input that was rejected and why.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateRegister returns one FieldError per violated rule, in the order
// email, username, password. A nil result means the input is acceptable.
func ValidateRegister(in RegisterInput) []FieldError {
	var errs []FieldError

	if !validEmail(in.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "invalid email"})
	}

	// '@' is reserved so login can tell usernames and emails apart.
	if strings.Contains(in.Username, "@") {
		errs = append(errs, FieldError{Field: "username", Message: "cannot include an @"})
	}
	if utf8.RuneCountInString(in.Username) < MinUsernameLength {
		errs = append(errs, FieldError{Field: "username", Message: "length must be greater than 2"})
	}

	errs = append(errs, ValidatePassword("password", in.Password)...)

	return errs
}

// ValidatePassword checks the password policy, reporting violations under
// the given field name.
func ValidatePassword(field, password string) []FieldError {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return []FieldError{{Field: field, Message: "length must be greater than 2"}}
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at >= 0 && at < len(email)-1
}

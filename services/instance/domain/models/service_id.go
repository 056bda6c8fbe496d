package models

import "fmt"

// ServiceID identifies one running instance of a service.
// Allowed: 1..128 characters from [A-Za-z0-9._:-].
type ServiceID string

const maxServiceIDLength = 128

// NewServiceID constructs a valid ServiceID or returns an error if constraints are violated.
func NewServiceID(s string) (ServiceID, error) {
	if s == "" {
		return "", fmt.Errorf("service id must not be empty")
	}
	if len(s) > maxServiceIDLength {
		return "", fmt.Errorf("service id must not exceed %d characters", maxServiceIDLength)
	}
	for i, r := range s {
		if !validServiceIDRune(r) {
			return "", fmt.Errorf("service id has invalid character %q at %d", r, i)
		}
	}
	return ServiceID(s), nil
}

func validServiceIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == ':', r == '-':
		return true
	}
	return false
}

// String returns the underlying string value.
func (id ServiceID) String() string {
	return string(id)
}
